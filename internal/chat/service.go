package chat

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

// Service is the messaging bridge over the message store.
type Service struct {
	store     Store
	sanitizer *bluemonday.Policy
	log       *slog.Logger
}

// NewService creates the messaging bridge.
func NewService(store Store, log *slog.Logger) *Service {
	return &Service{
		store:     store,
		sanitizer: bluemonday.StrictPolicy(),
		log:       log,
	}
}

// Send sanitizes and persists a message, returning the stored copy with
// its identifier and timestamp assigned.
func (s *Service) Send(ctx context.Context, m Message) (Message, error) {
	if m.ThreadID == "" {
		return Message{}, ErrThreadRequired
	}
	if m.SenderID == "" {
		return Message{}, ErrSenderRequired
	}

	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	m.Content = s.sanitizer.Sanitize(m.Content)
	m.Seen = false

	if err := s.store.CreateMessage(ctx, &m); err != nil {
		return Message{}, err
	}

	return m, nil
}

// History returns the thread's messages, oldest first.
func (s *Service) History(ctx context.Context, threadID string) ([]Message, error) {
	return s.store.ListByThread(ctx, threadID)
}

// MarkSeen flags the thread's messages as seen for the given user.
// Called by both the HTTP controller and the realtime gateway.
func (s *Service) MarkSeen(ctx context.Context, threadID, userID string) error {
	if userID == "" {
		return ErrUserRequired
	}
	return s.store.MarkSeen(ctx, threadID, userID)
}
