package servers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/firepit-chat/firepit/internal/apicache"
)

const membersCacheTTL = 30 * time.Second

// Store abstracts persistence so the service can be tested against stubs.
type Store interface {
	CreateServer(ctx context.Context, s Server) (Server, error)
	GetServer(ctx context.Context, id string) (Server, error)
	Join(ctx context.Context, serverID, userID string) error
	Leave(ctx context.Context, serverID, userID string) error
	ListMembers(ctx context.Context, serverID string) ([]Member, error)
}

// Service orchestrates server and membership operations. Membership reads
// are deduplicated through the shared cache so bursts of near-simultaneous
// list requests collapse into one query.
type Service struct {
	store Store
	cache *apicache.Cache
}

// NewService constructs a Service.
func NewService(store Store, cache *apicache.Cache) *Service {
	return &Service{store: store, cache: cache}
}

// CreateServer inserts a new server owned by ownerID.
func (s *Service) CreateServer(ctx context.Context, name, ownerID string) (Server, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Server{}, errors.New("servers: server name required")
	}
	if ownerID == "" {
		return Server{}, errors.New("servers: owner required")
	}
	return s.store.CreateServer(ctx, Server{ID: uuid.NewString(), Name: name, OwnerID: ownerID})
}

// GetServer fetches a server by id.
func (s *Service) GetServer(ctx context.Context, id string) (Server, error) {
	return s.store.GetServer(ctx, id)
}

// Join adds userID to the server and assigns its default role. The cached
// member list is invalidated so the next read sees the new member.
func (s *Service) Join(ctx context.Context, serverID, userID string) error {
	if _, err := s.store.GetServer(ctx, serverID); err != nil {
		return err
	}
	if err := s.store.Join(ctx, serverID, userID); err != nil {
		return err
	}
	s.cache.Delete(membersCacheKey(serverID))
	return nil
}

// Leave removes userID's membership and role assignments.
func (s *Service) Leave(ctx context.Context, serverID, userID string) error {
	if err := s.store.Leave(ctx, serverID, userID); err != nil {
		return err
	}
	s.cache.Delete(membersCacheKey(serverID))
	return nil
}

// ListMembers returns the server's members, serving repeat reads from the
// dedupe cache.
func (s *Service) ListMembers(ctx context.Context, serverID string) ([]Member, error) {
	v, err := s.cache.Dedupe(ctx, membersCacheKey(serverID), membersCacheTTL, func(ctx context.Context) (any, error) {
		return s.store.ListMembers(ctx, serverID)
	})
	if err != nil {
		return nil, err
	}
	members, _ := v.([]Member)
	return members, nil
}

func membersCacheKey(serverID string) string {
	return "servers:members:" + serverID
}
