package model

import "time"

// Role is the closed set of authorization roles.  Capability checks in
// the engine compare against these constants; there is no ad hoc string
// comparison elsewhere.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole normalizes a stored or claimed role string.  Unknown values
// degrade to RoleUser so a corrupted claim can never grant admin rights.
func ParseRole(s string) Role {
	if s == string(RoleAdmin) {
		return RoleAdmin
	}
	return RoleUser
}

// User mirrors the `users` table.  Login is by username; the email is
// kept for registration uniqueness only.
type User struct {
	ID           uint64
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session is the verified identity attached to a connection at handshake
// time.  It is supplied by the auth layer and trusted verbatim by the
// reservation engine.  A nil *Session means the connection is anonymous.
type Session struct {
	UserID   uint64
	Username string
	Role     Role
}

// IsAdmin reports whether the session carries the admin role.  Safe on a
// nil receiver: anonymous sessions are never admins.
func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == RoleAdmin
}
