package servers

import "time"

// Server is a community that members join and chat within.
type Server struct {
	ID        string
	Name      string
	OwnerID   string
	CreatedAt time.Time
}

// Member is one user's membership of a server.
type Member struct {
	ServerID string
	UserID   string
	JoinedAt time.Time
}
