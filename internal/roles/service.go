package roles

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/firepit-chat/firepit/internal/permissions"
)

// ErrUnknownCapability indicates a grant or override referencing a
// capability name outside the closed set.
var ErrUnknownCapability = errors.New("roles: unknown capability")

// Store abstracts persistence so the service can be tested against stubs.
type Store interface {
	ListRoles(ctx context.Context, serverID string) ([]Role, error)
	GetRole(ctx context.Context, id string) (Role, error)
	CreateRole(ctx context.Context, role Role) (Role, error)
	UpdateRole(ctx context.Context, id, name string, position int, grants map[string]bool) (Role, error)
	SetDefault(ctx context.Context, serverID, roleID string) error
	DeleteRole(ctx context.Context, id string) error
	AssignRole(ctx context.Context, roleID, userID string) error
	RemoveRole(ctx context.Context, roleID, userID string) error
	SetOverride(ctx context.Context, o Override) error
	DeleteOverride(ctx context.Context, channelID, roleID string) error
}

// Service orchestrates role management.
type Service struct {
	store Store
}

// NewService constructs a Service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// ListRoles returns all roles of a server ordered by precedence.
func (s *Service) ListRoles(ctx context.Context, serverID string) ([]Role, error) {
	return s.store.ListRoles(ctx, serverID)
}

// GetRole fetches a role by id.
func (s *Service) GetRole(ctx context.Context, id string) (Role, error) {
	return s.store.GetRole(ctx, id)
}

// CreateRole inserts a new role. Grants are validated against the closed
// capability set; marking the role default-on-join demotes any existing
// default of the server.
func (s *Service) CreateRole(ctx context.Context, serverID, name string, position int, grants map[string]bool, defaultOnJoin bool) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, errors.New("roles: role name required")
	}
	if err := validateGrants(grants); err != nil {
		return Role{}, err
	}
	return s.store.CreateRole(ctx, Role{
		ID:            uuid.NewString(),
		ServerID:      serverID,
		Name:          name,
		Position:      position,
		Grants:        grants,
		DefaultOnJoin: defaultOnJoin,
	})
}

// UpdateRole updates name, position and grants of an existing role.
func (s *Service) UpdateRole(ctx context.Context, id, name string, position int, grants map[string]bool) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, errors.New("roles: role name required")
	}
	if err := validateGrants(grants); err != nil {
		return Role{}, err
	}
	return s.store.UpdateRole(ctx, id, name, position, grants)
}

// SetDefault marks one role as the server's default-on-join role.
func (s *Service) SetDefault(ctx context.Context, serverID, roleID string) error {
	return s.store.SetDefault(ctx, serverID, roleID)
}

// DeleteRole removes a role.
func (s *Service) DeleteRole(ctx context.Context, id string) error {
	return s.store.DeleteRole(ctx, id)
}

// AssignRole assigns a role to a member.
func (s *Service) AssignRole(ctx context.Context, roleID, userID string) error {
	return s.store.AssignRole(ctx, roleID, userID)
}

// RemoveRole removes a role from a member.
func (s *Service) RemoveRole(ctx context.Context, roleID, userID string) error {
	return s.store.RemoveRole(ctx, roleID, userID)
}

// SetOverride upserts a channel override for a role. Capability names are
// validated and a name may not appear in both allow and deny.
func (s *Service) SetOverride(ctx context.Context, channelID, roleID string, allow, deny []string) error {
	seen := make(map[string]struct{}, len(allow))
	for _, name := range allow {
		if _, ok := permissions.CapabilityFromString(name); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownCapability, name)
		}
		seen[name] = struct{}{}
	}
	for _, name := range deny {
		if _, ok := permissions.CapabilityFromString(name); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownCapability, name)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("roles: capability %q in both allow and deny", name)
		}
	}
	return s.store.SetOverride(ctx, Override{ChannelID: channelID, RoleID: roleID, Allow: allow, Deny: deny})
}

// DeleteOverride removes a channel override.
func (s *Service) DeleteOverride(ctx context.Context, channelID, roleID string) error {
	return s.store.DeleteOverride(ctx, channelID, roleID)
}

func validateGrants(grants map[string]bool) error {
	for name := range grants {
		if _, ok := permissions.CapabilityFromString(name); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownCapability, name)
		}
	}
	return nil
}
