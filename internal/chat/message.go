// Package chat implements the messaging bridge: it persists chat messages,
// replays thread history on room join, and marks messages as seen. The
// realtime gateway and the HTTP controllers call the same service, so there
// is a single domain path for every mutation.
package chat

import (
	"context"
	"errors"
	"time"
)

// Message is a single chat message within a thread.
type Message struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"threadId"`
	SenderID  string    `json:"senderId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	Seen      bool      `json:"seen"`
}

// Store defines message persistence.
type Store interface {
	// CreateMessage persists a new message.
	CreateMessage(ctx context.Context, m *Message) error

	// ListByThread returns all messages in a thread, oldest first.
	ListByThread(ctx context.Context, threadID string) ([]Message, error)

	// MarkSeen flags every message in the thread as seen for the given
	// user (messages the user did not send).
	MarkSeen(ctx context.Context, threadID, userID string) error
}

var (
	// ErrThreadRequired is returned when a message has no thread reference.
	ErrThreadRequired = errors.New("chat: thread id is required")

	// ErrSenderRequired is returned when a message has no sender.
	ErrSenderRequired = errors.New("chat: sender id is required")

	// ErrUserRequired is returned by seen-marking without a user identity.
	ErrUserRequired = errors.New("chat: user id is required")
)
