package domain

import "time"

// Role classifies a session identity.
type Role string

const (
	// RoleUser is a persisted account; may own events and join/leave them.
	RoleUser Role = "user"
	// RoleGuest is a synthetic, non-persisted identity; read-only access.
	RoleGuest Role = "guest"
)

// Session is the per-connection identity attached to every inbound request.
// It is derived from a verified token during the connection handshake and is
// never persisted.
type Session struct {
	UserID string `json:"id"`
	Name   string `json:"name"`
	Role   Role   `json:"role"`
}

// IsGuest reports whether the session carries a synthetic guest identity.
func (s *Session) IsGuest() bool {
	return s != nil && s.Role == RoleGuest
}

// TokenVerifier validates a bearer token and returns the session it encodes.
type TokenVerifier interface {
	Verify(token string) (*Session, error)
}

// TokenIssuer signs a token for the given session.
type TokenIssuer interface {
	Issue(sess *Session, expiry time.Duration) (string, error)
}
