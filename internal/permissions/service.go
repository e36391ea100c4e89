package permissions

import (
	"context"
)

// Store abstracts the lookups the resolver needs, so the service can be
// exercised against stubs in tests.
type Store interface {
	ServerOwner(ctx context.Context, serverID string) (string, error)
	MemberRoleGrants(ctx context.Context, serverID, userID string) ([]RoleGrants, error)
	ChannelOverridesForRoles(ctx context.Context, channelID string, roleIDs []string) ([]ChannelOverride, error)
}

// Service computes effective capability sets on demand. Results are
// request-scoped and never cached: a role edit must be visible on the next
// query.
type Service struct {
	store Store
}

// NewService constructs a Service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Effective resolves the capability set for a member of a server,
// optionally narrowed to one channel. channelID may be empty for
// server-level resolution.
func (s *Service) Effective(ctx context.Context, serverID, userID, channelID string) (EffectiveSet, error) {
	ownerID, err := s.store.ServerOwner(ctx, serverID)
	if err != nil {
		return EffectiveSet{}, err
	}
	if ownerID == userID {
		return ComputeEffective(nil, nil, true), nil
	}

	roles, err := s.store.MemberRoleGrants(ctx, serverID, userID)
	if err != nil {
		return EffectiveSet{}, err
	}

	var overrides []ChannelOverride
	if channelID != "" && len(roles) > 0 {
		roleIDs := make([]string, len(roles))
		for i, r := range roles {
			roleIDs[i] = r.RoleID
		}
		overrides, err = s.store.ChannelOverridesForRoles(ctx, channelID, roleIDs)
		if err != nil {
			return EffectiveSet{}, err
		}
	}

	return ComputeEffective(roles, overrides, false), nil
}

// Allows reports whether the member holds one capability, resolving the full
// set internally.
func (s *Service) Allows(ctx context.Context, serverID, userID, channelID string, c Capability) (bool, error) {
	set, err := s.Effective(ctx, serverID, userID, channelID)
	if err != nil {
		return false, err
	}
	return set.Has(c), nil
}
