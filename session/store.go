package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"stock-game-frontend/models"
)

const keyPrefix = "session:"

var ErrNotFound = errors.New("session not found")

// Store keeps sessions keyed by session id. Each key is only ever written by
// the request that owns it, so implementations need no cross-key locking.
type Store interface {
	Save(ctx context.Context, s *models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	Touch(ctx context.Context, s *models.Session, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

var _ Store = (*RedisStore)(nil)

type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

// Save writes the session with a TTL equal to its remaining lifetime.
func (r *RedisStore) Save(ctx context.Context, s *models.Session) error {
	ttl, payload, err := r.encode(s)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, keyPrefix+s.ID, payload, ttl).Err(); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// Touch extends a live session by ttl, never past its token's expiry. It
// only rewrites a key that still exists, so a session deleted by a concurrent
// logout stays deleted and ErrNotFound is returned.
func (r *RedisStore) Touch(ctx context.Context, s *models.Session, ttl time.Duration) error {
	expiresAt := r.now().Add(ttl)
	if !s.TokenExpiresAt.IsZero() && s.TokenExpiresAt.Before(expiresAt) {
		expiresAt = s.TokenExpiresAt
	}
	s.ExpiresAt = expiresAt

	left, payload, err := r.encode(s)
	if err != nil {
		return err
	}
	ok, err := r.client.SetXX(ctx, keyPrefix+s.ID, payload, left).Result()
	if err != nil {
		return fmt.Errorf("touching session: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (r *RedisStore) encode(s *models.Session) (time.Duration, []byte, error) {
	ttl := s.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return 0, nil, fmt.Errorf("session %s already expired", s.ID)
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return 0, nil, fmt.Errorf("encoding session: %w", err)
	}
	return ttl, payload, nil
}

func (r *RedisStore) Get(ctx context.Context, id string) (*models.Session, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	payload, err := r.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}

	var s models.Session
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, fmt.Errorf("decoding session %s: %w", id, err)
	}
	return &s, nil
}

// Delete removes the session. Deleting a missing session is not an error.
func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := r.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}
