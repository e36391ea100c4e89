package roles

import "time"

// Role is a named bundle of capability grants scoped to one server.
// Position orders precedence: lower value means higher precedence, with
// position 0 at the top. At most one role per server carries DefaultOnJoin.
type Role struct {
	ID            string
	ServerID      string
	Name          string
	Position      int
	Grants        map[string]bool
	DefaultOnJoin bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Assignment links a member to a role within a server.
type Assignment struct {
	RoleID    string
	UserID    string
	CreatedAt time.Time
}

// Override is a per-channel adjustment of one role's capabilities.
type Override struct {
	ChannelID string
	RoleID    string
	Allow     []string
	Deny      []string
	UpdatedAt time.Time
}
