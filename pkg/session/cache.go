package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	cacheKeyPrefix = "session:"

	// cacheIDKeyPrefix indexes id -> token so Delete, which is keyed by
	// id, can evict the token-keyed entry.
	cacheIDKeyPrefix = "session:id:"
)

// CachedStore is a read-through Redis cache in front of another Store.
// Sessions are read on every HTTP request and on each realtime handshake,
// so the hot path avoids a Postgres round-trip. Writes go to the backing
// store first; cache entries expire with the session.
type CachedStore struct {
	next   Store
	client redis.UniversalClient
}

// NewCachedStore wraps next with a Redis read-through cache.
func NewCachedStore(next Store, client redis.UniversalClient) *CachedStore {
	return &CachedStore{next: next, client: client}
}

func (s *CachedStore) Create(ctx context.Context, sess *Session) error {
	if err := s.next.Create(ctx, sess); err != nil {
		return err
	}
	s.cache(ctx, sess)
	return nil
}

func (s *CachedStore) Get(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	if data, err := s.client.Get(ctx, cacheKeyPrefix+token).Bytes(); err == nil {
		var sess Session
		if err := json.Unmarshal(data, &sess); err == nil {
			if sess.IsExpired() {
				s.client.Del(ctx, cacheKeyPrefix+token, cacheIDKeyPrefix+sess.ID)
				return nil, ErrExpired
			}
			return &sess, nil
		}
	}

	sess, err := s.next.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	s.cache(ctx, sess)
	return sess, nil
}

func (s *CachedStore) Update(ctx context.Context, sess *Session) error {
	if err := s.next.Update(ctx, sess); err != nil {
		return err
	}
	s.cache(ctx, sess)
	return nil
}

// Delete removes the session from the backing store and evicts it from
// the cache. A logged-out session must stop authenticating immediately;
// letting the cached copy age out would keep it valid for its whole TTL.
func (s *CachedStore) Delete(ctx context.Context, id string) error {
	if err := s.next.Delete(ctx, id); err != nil {
		return err
	}
	s.evict(ctx, id)
	return nil
}

func (s *CachedStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return s.next.DeleteExpired(ctx, now)
}

// cache stores the session with a TTL matching its remaining lifetime.
// Cache failures are ignored: the backing store remains authoritative.
func (s *CachedStore) cache(ctx context.Context, sess *Session) {
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return
	}
	s.client.Set(ctx, cacheKeyPrefix+sess.Token, data, ttl)
	s.client.Set(ctx, cacheIDKeyPrefix+sess.ID, sess.Token, ttl)
}

// evict drops both cache entries for a deleted session. Best-effort like
// cache; the row is already gone from the backing store.
func (s *CachedStore) evict(ctx context.Context, id string) {
	if token, err := s.client.Get(ctx, cacheIDKeyPrefix+id).Result(); err == nil {
		s.client.Del(ctx, cacheKeyPrefix+token)
	}
	s.client.Del(ctx, cacheIDKeyPrefix+id)
}
