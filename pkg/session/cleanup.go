package session

import (
	"context"
	"log/slog"
	"time"
)

// CleanupTask is a scheduled job that deletes expired session rows.
type CleanupTask struct {
	store Store
	log   *slog.Logger
}

// NewCleanupTask creates the hourly session cleanup task.
func NewCleanupTask(store Store, log *slog.Logger) *CleanupTask {
	return &CleanupTask{store: store, log: log}
}

func (t *CleanupTask) Name() string { return "sessions:cleanup" }

func (t *CleanupTask) Schedule() string { return "0 * * * *" }

func (t *CleanupTask) Handle(ctx context.Context) error {
	n, err := t.store.DeleteExpired(ctx, time.Now())
	if err != nil {
		return err
	}
	if n > 0 {
		t.log.InfoContext(ctx, "expired sessions removed", slog.Int64("count", n))
	}
	return nil
}
