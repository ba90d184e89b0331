// Package session implements the durable session store shared by the HTTP
// stack and the realtime gateway. A single login grants both REST and push
// access: HTTP middleware and the websocket handshake resolve the same
// record by its cookie token.
package session

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// Role is the coarse authorization level carried by a session.
type Role string

const (
	RoleCreator    Role = "creator"
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
)

// Session represents an authenticated user session.
type Session struct {
	CreatedAt time.Time
	ExpiresAt time.Time

	ID     string // unique identifier
	Token  string // opaque cookie token (distinct from ID for security)
	UserID string
	Name   string
	Role   Role

	// ProviderToken holds the optional OAuth token from an external
	// accounting/auth provider, refreshed out of band.
	ProviderToken *oauth2.Token
}

// New creates a session for the given user.
func New(userID, name string, role Role, ttl time.Duration) *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.NewString(),
		Token:     uuid.NewString(),
		UserID:    userID,
		Name:      name,
		Role:      role,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// IsExpired reports whether the session has passed its expiry.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// IsAdmin reports whether the session belongs to an admin or superadmin.
func (s *Session) IsAdmin() bool {
	return s.Role == RoleAdmin || s.Role == RoleSuperadmin
}
