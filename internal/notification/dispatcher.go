package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Pusher delivers an event to a user's registered realtime connection.
// Returns false when the user has no live connection. Implemented by the
// realtime gateway.
type Pusher interface {
	Push(userID, event string, data any) bool
}

// pushEvent is the realtime event name notifications are delivered under.
const pushEvent = "notification"

// Dispatcher writes notifications durably and then attempts realtime
// delivery. A failed or skipped push is not an error: the record stays
// retrievable through the listing endpoint.
type Dispatcher struct {
	log    *slog.Logger
	store  Store
	pusher Pusher
}

// NewDispatcher creates a dispatcher. The pusher may be nil when running
// without a realtime gateway (e.g. offline jobs in tests).
func NewDispatcher(log *slog.Logger, store Store, pusher Pusher) *Dispatcher {
	return &Dispatcher{log: log, store: store, pusher: pusher}
}

// Notify persists a notification for the user and pushes it if the user
// is connected. The durable write happens first; if it fails, nothing is
// pushed and the error is returned. relatedID references the subject
// entity and may be empty.
func (d *Dispatcher) Notify(ctx context.Context, userID, message string, category Category, relatedID string) (*Notification, error) {
	if userID == "" {
		return nil, ErrUserRequired
	}
	if message == "" {
		return nil, ErrMessageRequired
	}

	n := &Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Message:   message,
		Category:  category,
		RelatedID: relatedID,
		CreatedAt: time.Now().UTC(),
	}

	if err := d.store.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}

	if d.pusher != nil {
		if delivered := d.pusher.Push(userID, pushEvent, n); !delivered {
			d.log.DebugContext(ctx, "notification push skipped, user not connected",
				slog.String("user_id", userID),
				slog.String("notification_id", n.ID),
			)
		}
	}

	return n, nil
}

// NotifyAll fans a notification out to multiple recipients. Each recipient
// gets its own durable record; the first storage failure aborts the fanout.
func (d *Dispatcher) NotifyAll(ctx context.Context, userIDs []string, message string, category Category, relatedID string) error {
	for _, userID := range userIDs {
		if _, err := d.Notify(ctx, userID, message, category, relatedID); err != nil {
			return err
		}
	}
	return nil
}

// List returns the user's notifications, newest first.
func (d *Dispatcher) List(ctx context.Context, userID string) ([]Notification, error) {
	if userID == "" {
		return nil, ErrUserRequired
	}
	return d.store.ListByUser(ctx, userID)
}

// MarkRead flags a notification as read for the user.
func (d *Dispatcher) MarkRead(ctx context.Context, id, userID string) error {
	if userID == "" {
		return ErrUserRequired
	}
	return d.store.MarkRead(ctx, id, userID)
}
