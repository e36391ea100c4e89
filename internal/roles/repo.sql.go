package roles

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

// Repository provides PostgreSQL backed persistence for roles, assignments
// and channel overrides.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const roleColumns = `id, server_id, name, position, grants, default_on_join, created_at, updated_at`

func scanRole(row pgx.Row) (Role, error) {
	var role Role
	err := row.Scan(&role.ID, &role.ServerID, &role.Name, &role.Position, &role.Grants, &role.DefaultOnJoin, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, shared.ErrNotFound
		}
		return Role{}, err
	}
	return role, nil
}

// ListRoles returns all roles of a server ordered by precedence.
func (r *Repository) ListRoles(ctx context.Context, serverID string) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roleColumns+` FROM roles WHERE server_id = $1 ORDER BY position`, serverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, rows.Err()
}

// GetRole fetches a role by id.
func (r *Repository) GetRole(ctx context.Context, id string) (Role, error) {
	return scanRole(r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id))
}

// CreateRole inserts a role. When the role is marked default-on-join every
// other default of the server is demoted in the same transaction.
func (r *Repository) CreateRole(ctx context.Context, role Role) (Role, error) {
	var created Role
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if role.DefaultOnJoin {
			if _, err := tx.Exec(ctx, `UPDATE roles SET default_on_join = false, updated_at = now() WHERE server_id = $1 AND default_on_join`, role.ServerID); err != nil {
				return err
			}
		}
		var err error
		created, err = scanRole(tx.QueryRow(ctx, `
			INSERT INTO roles (id, server_id, name, position, grants, default_on_join, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, now(), now())
			RETURNING `+roleColumns,
			role.ID, role.ServerID, role.Name, role.Position, role.Grants, role.DefaultOnJoin))
		return mapPgError(err)
	})
	if err != nil {
		return Role{}, err
	}
	return created, nil
}

// UpdateRole updates a role's name, position and grants.
func (r *Repository) UpdateRole(ctx context.Context, id, name string, position int, grants map[string]bool) (Role, error) {
	role, err := scanRole(r.pool.QueryRow(ctx, `
		UPDATE roles SET name = $2, position = $3, grants = $4, updated_at = now()
		WHERE id = $1
		RETURNING `+roleColumns, id, name, position, grants))
	if err != nil {
		return Role{}, mapPgError(err)
	}
	return role, nil
}

// SetDefault promotes one role to default-on-join, demoting every other role
// of the server inside a transaction so the invariant holds.
func (r *Repository) SetDefault(ctx context.Context, serverID, roleID string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE roles SET default_on_join = false, updated_at = now() WHERE server_id = $1 AND default_on_join AND id <> $2`, serverID, roleID); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `UPDATE roles SET default_on_join = true, updated_at = now() WHERE server_id = $1 AND id = $2`, serverID, roleID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// DeleteRole removes a role; assignments and overrides cascade.
func (r *Repository) DeleteRole(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// AssignRole links a member to a role. Re-assigning is a no-op.
func (r *Repository) AssignRole(ctx context.Context, roleID, userID string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO role_assignments (role_id, user_id, created_at)
		VALUES ($1, $2, now())
		ON CONFLICT (role_id, user_id) DO NOTHING`, roleID, userID)
	return err
}

// RemoveRole unlinks a member from a role.
func (r *Repository) RemoveRole(ctx context.Context, roleID, userID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM role_assignments WHERE role_id = $1 AND user_id = $2`, roleID, userID)
	return err
}

// SetOverride upserts the channel override for one role.
func (r *Repository) SetOverride(ctx context.Context, o Override) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO channel_overrides (channel_id, role_id, allow, deny, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (channel_id, role_id) DO UPDATE SET allow = EXCLUDED.allow, deny = EXCLUDED.deny, updated_at = now()`,
		o.ChannelID, o.RoleID, o.Allow, o.Deny)
	return err
}

// DeleteOverride removes the channel override for one role.
func (r *Repository) DeleteOverride(ctx context.Context, channelID, roleID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM channel_overrides WHERE channel_id = $1 AND role_id = $2`, channelID, roleID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return httpx.ErrDuplicate
	}
	return err
}
