package session

import (
	"context"
	"time"
)

// Store defines the interface for session persistence.
// A session is created on login, read on every HTTP request and on the
// realtime connection handshake, and destroyed on logout or expiry.
type Store interface {
	// Create persists a new session.
	Create(ctx context.Context, s *Session) error

	// Get retrieves a session by its cookie token.
	// Returns ErrNotFound if the session doesn't exist,
	// ErrExpired if it has passed its expiry.
	Get(ctx context.Context, token string) (*Session, error)

	// Update saves changes to an existing session (e.g. refreshed
	// provider tokens).
	Update(ctx context.Context, s *Session) error

	// Delete removes a session by its ID.
	Delete(ctx context.Context, id string) error

	// DeleteExpired removes all sessions whose expiry is before now.
	// Called by the scheduled cleanup task.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
