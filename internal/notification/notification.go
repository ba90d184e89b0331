// Package notification implements durable user notifications with
// best-effort realtime delivery. Every notification is written to storage
// first; the push over the websocket is an optimization for connected
// clients, never the source of truth.
package notification

import (
	"context"
	"errors"
	"time"
)

// Category classifies a notification for client-side grouping.
type Category string

const (
	CategoryAgreement Category = "agreement"
	CategoryDraft     Category = "draft"
	CategoryChat      Category = "chat"
	CategorySystem    Category = "system"
)

// Notification is a single durable notification record. RelatedID points
// at the entity the notification is about (a submission, a thread), empty
// for system-wide notices.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Message   string    `json:"message"`
	Category  Category  `json:"category"`
	RelatedID string    `json:"relatedId,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store defines notification persistence.
type Store interface {
	// Create persists a new notification.
	Create(ctx context.Context, n *Notification) error

	// ListByUser returns the user's notifications, newest first.
	ListByUser(ctx context.Context, userID string) ([]Notification, error)

	// MarkRead flags a single notification as read. The user scope
	// prevents cross-user receipt forgery.
	MarkRead(ctx context.Context, id, userID string) error
}

var (
	// ErrUserRequired is returned when a notification has no recipient.
	ErrUserRequired = errors.New("notification: user id is required")

	// ErrMessageRequired is returned when a notification has no body.
	ErrMessageRequired = errors.New("notification: message is required")

	// ErrNotFound is returned when a notification does not exist for the
	// given user.
	ErrNotFound = errors.New("notification: not found")
)
