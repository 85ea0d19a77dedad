package auth

import (
	"time"

	"github.com/yosihaf/wikibook/internal/users"
)

// Session is a bearer-token login session.
type Session struct {
	Token     string     `json:"token"`
	UserID    string     `json:"user_id"`
	Username  string     `json:"username"`
	Role      users.Role `json:"role"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// Expired reports whether the session is past its TTL.
func (s *Session) Expired() bool {
	return time.Now().After(s.ExpiresAt)
}

// IsAdmin reports whether the session belongs to an admin user.
func (s *Session) IsAdmin() bool {
	return s.Role == users.RoleAdmin
}
