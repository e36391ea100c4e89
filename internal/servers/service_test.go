package servers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firepit-chat/firepit/internal/apicache"
	"github.com/firepit-chat/firepit/internal/shared"
)

type mockStore struct {
	servers   map[string]Server
	members   map[string][]Member
	listCalls int
}

func newMockStore() *mockStore {
	return &mockStore{
		servers: make(map[string]Server),
		members: make(map[string][]Member),
	}
}

func (m *mockStore) CreateServer(ctx context.Context, s Server) (Server, error) {
	m.servers[s.ID] = s
	return s, nil
}

func (m *mockStore) GetServer(ctx context.Context, id string) (Server, error) {
	s, ok := m.servers[id]
	if !ok {
		return Server{}, shared.ErrNotFound
	}
	return s, nil
}

func (m *mockStore) Join(ctx context.Context, serverID, userID string) error {
	m.members[serverID] = append(m.members[serverID], Member{ServerID: serverID, UserID: userID})
	return nil
}

func (m *mockStore) Leave(ctx context.Context, serverID, userID string) error {
	kept := m.members[serverID][:0]
	for _, mem := range m.members[serverID] {
		if mem.UserID != userID {
			kept = append(kept, mem)
		}
	}
	m.members[serverID] = kept
	return nil
}

func (m *mockStore) ListMembers(ctx context.Context, serverID string) ([]Member, error) {
	m.listCalls++
	return append([]Member(nil), m.members[serverID]...), nil
}

func TestCreateServerValidation(t *testing.T) {
	svc := NewService(newMockStore(), apicache.New())

	_, err := svc.CreateServer(context.Background(), "  ", "u1")
	assert.Error(t, err)

	_, err = svc.CreateServer(context.Background(), "campfire", "")
	assert.Error(t, err)

	s, err := svc.CreateServer(context.Background(), "campfire", "u1")
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "u1", s.OwnerID)
}

func TestJoinUnknownServer(t *testing.T) {
	svc := NewService(newMockStore(), apicache.New())

	err := svc.Join(context.Background(), "missing", "u1")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestListMembersServesFromCache(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, apicache.New())

	s, err := svc.CreateServer(context.Background(), "campfire", "u1")
	require.NoError(t, err)
	require.NoError(t, svc.Join(context.Background(), s.ID, "u2"))

	first, err := svc.ListMembers(context.Background(), s.ID)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := svc.ListMembers(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.listCalls, "repeat read should be served from cache")
}

func TestJoinInvalidatesMemberCache(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, apicache.New())

	s, err := svc.CreateServer(context.Background(), "campfire", "u1")
	require.NoError(t, err)
	require.NoError(t, svc.Join(context.Background(), s.ID, "u2"))

	members, err := svc.ListMembers(context.Background(), s.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)

	require.NoError(t, svc.Join(context.Background(), s.ID, "u3"))

	members, err = svc.ListMembers(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2, "join must invalidate cached member list")
	assert.Equal(t, 2, store.listCalls)
}

func TestLeaveInvalidatesMemberCache(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, apicache.New())

	s, err := svc.CreateServer(context.Background(), "campfire", "u1")
	require.NoError(t, err)
	require.NoError(t, svc.Join(context.Background(), s.ID, "u2"))
	require.NoError(t, svc.Join(context.Background(), s.ID, "u3"))

	members, err := svc.ListMembers(context.Background(), s.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)

	require.NoError(t, svc.Leave(context.Background(), s.ID, "u2"))

	members, err = svc.ListMembers(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Len(t, members, 1)
}
