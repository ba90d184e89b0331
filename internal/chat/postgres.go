package chat

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists messages in the messages table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed message store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) CreateMessage(ctx context.Context, m *Message) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO messages (id, thread_id, sender_id, content, seen, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.ThreadID, m.SenderID, m.Content, m.Seen, m.CreatedAt,
	)
	return err
}

func (s *PostgresStore) ListByThread(ctx context.Context, threadID string) ([]Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, thread_id, sender_id, content, seen, created_at
		FROM messages WHERE thread_id = $1
		ORDER BY created_at ASC`,
		threadID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Message, error) {
		var m Message
		err := row.Scan(&m.ID, &m.ThreadID, &m.SenderID, &m.Content, &m.Seen, &m.CreatedAt)
		return m, err
	})
}

func (s *PostgresStore) MarkSeen(ctx context.Context, threadID, userID string) error {
	// Only messages from other participants become seen; a user's own
	// messages keep their flag until the counterpart reads them.
	_, err := s.pool.Exec(ctx, `
		UPDATE messages SET seen = TRUE
		WHERE thread_id = $1 AND sender_id <> $2 AND seen = FALSE`,
		threadID, userID,
	)
	return err
}
