package servers

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/firepit-chat/firepit/internal/platform/db"
	"github.com/firepit-chat/firepit/internal/platform/httpx"
	"github.com/firepit-chat/firepit/internal/shared"
)

// Repository provides PostgreSQL backed persistence for servers and
// memberships.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateServer inserts a server.
func (r *Repository) CreateServer(ctx context.Context, s Server) (Server, error) {
	var created Server
	err := r.pool.QueryRow(ctx, `
		INSERT INTO servers (id, name, owner_id, created_at)
		VALUES ($1, $2, $3, now())
		RETURNING id, name, owner_id, created_at`,
		s.ID, s.Name, s.OwnerID).Scan(&created.ID, &created.Name, &created.OwnerID, &created.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Server{}, httpx.ErrDuplicate
		}
		return Server{}, err
	}
	return created, nil
}

// GetServer fetches a server by id.
func (r *Repository) GetServer(ctx context.Context, id string) (Server, error) {
	var s Server
	err := r.pool.QueryRow(ctx, `SELECT id, name, owner_id, created_at FROM servers WHERE id = $1`, id).
		Scan(&s.ID, &s.Name, &s.OwnerID, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Server{}, shared.ErrNotFound
		}
		return Server{}, err
	}
	return s, nil
}

// Join records the membership and assigns the server's default-on-join role,
// when one exists, inside one transaction.
func (r *Repository) Join(ctx context.Context, serverID, userID string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO server_members (server_id, user_id, joined_at)
			VALUES ($1, $2, now())
			ON CONFLICT (server_id, user_id) DO NOTHING`, serverID, userID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			// Already a member; do not re-assign the default role.
			return nil
		}

		var defaultRoleID string
		err = tx.QueryRow(ctx, `SELECT id FROM roles WHERE server_id = $1 AND default_on_join LIMIT 1`, serverID).Scan(&defaultRoleID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		if defaultRoleID != "" {
			if _, err := tx.Exec(ctx, `
				INSERT INTO role_assignments (role_id, user_id, created_at)
				VALUES ($1, $2, now())
				ON CONFLICT (role_id, user_id) DO NOTHING`, defaultRoleID, userID); err != nil {
				return err
			}
		}
		return nil
	})
}

// Leave removes the membership and every role assignment the member held in
// the server.
func (r *Repository) Leave(ctx context.Context, serverID, userID string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			DELETE FROM role_assignments ra
			USING roles r
			WHERE ra.role_id = r.id AND r.server_id = $1 AND ra.user_id = $2`, serverID, userID); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM server_members WHERE server_id = $1 AND user_id = $2`, serverID, userID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// ListMembers returns the server's members ordered by join time.
func (r *Repository) ListMembers(ctx context.Context, serverID string) ([]Member, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT server_id, user_id, joined_at FROM server_members
		WHERE server_id = $1 ORDER BY joined_at`, serverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ServerID, &m.UserID, &m.JoinedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}
