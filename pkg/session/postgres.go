package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/oauth2"
)

// PostgresStore persists sessions in the sessions table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed session store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Create(ctx context.Context, sess *Session) error {
	providerToken, err := marshalProviderToken(sess.ProviderToken)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO sessions (id, token, user_id, name, role, provider_token, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		sess.ID, sess.Token, sess.UserID, sess.Name, string(sess.Role),
		providerToken, sess.CreatedAt, sess.ExpiresAt,
	)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	var (
		sess          Session
		role          string
		providerToken []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, token, user_id, name, role, provider_token, created_at, expires_at
		FROM sessions WHERE token = $1`,
		token,
	).Scan(&sess.ID, &sess.Token, &sess.UserID, &sess.Name, &role,
		&providerToken, &sess.CreatedAt, &sess.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	sess.Role = Role(role)

	if len(providerToken) > 0 {
		var t oauth2.Token
		if err := json.Unmarshal(providerToken, &t); err == nil {
			sess.ProviderToken = &t
		}
	}

	if sess.IsExpired() {
		return nil, ErrExpired
	}

	return &sess, nil
}

func (s *PostgresStore) Update(ctx context.Context, sess *Session) error {
	providerToken, err := marshalProviderToken(sess.ProviderToken)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE sessions SET name = $2, role = $3, provider_token = $4, expires_at = $5
		WHERE id = $1`,
		sess.ID, sess.Name, string(sess.Role), providerToken, sess.ExpiresAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func marshalProviderToken(t *oauth2.Token) ([]byte, error) {
	if t == nil {
		return nil, nil
	}
	return json.Marshal(t)
}
