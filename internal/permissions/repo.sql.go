package permissions

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/firepit-chat/firepit/internal/shared"
)

// Repository provides PostgreSQL backed lookups for permission resolution.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ServerOwner returns the owner user id for a server.
func (r *Repository) ServerOwner(ctx context.Context, serverID string) (string, error) {
	var ownerID string
	err := r.pool.QueryRow(ctx, `SELECT owner_id FROM servers WHERE id = $1`, serverID).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", shared.ErrNotFound
		}
		return "", err
	}
	return ownerID, nil
}

// MemberRoleGrants loads the roles assigned to a member within a server,
// with their precedence positions and capability grants.
func (r *Repository) MemberRoleGrants(ctx context.Context, serverID, userID string) ([]RoleGrants, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT r.id, r.position, r.grants
		FROM roles r
		JOIN role_assignments ra ON ra.role_id = r.id
		WHERE r.server_id = $1 AND ra.user_id = $2
		ORDER BY r.position`, serverID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var grants []RoleGrants
	for rows.Next() {
		var rg RoleGrants
		if err := rows.Scan(&rg.RoleID, &rg.Position, &rg.Grants); err != nil {
			return nil, err
		}
		grants = append(grants, rg)
	}
	return grants, rows.Err()
}

// ChannelOverridesForRoles loads the channel overrides applicable to the
// given roles in one channel.
func (r *Repository) ChannelOverridesForRoles(ctx context.Context, channelID string, roleIDs []string) ([]ChannelOverride, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT channel_id, role_id, allow, deny
		FROM channel_overrides
		WHERE channel_id = $1 AND role_id = ANY($2)`, channelID, roleIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var overrides []ChannelOverride
	for rows.Next() {
		var o ChannelOverride
		if err := rows.Scan(&o.ChannelID, &o.RoleID, &o.Allow, &o.Deny); err != nil {
			return nil, err
		}
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}
