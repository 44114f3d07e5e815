package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"stock-game-frontend/models"
	"stock-game-frontend/session"
)

func setup(t *testing.T) (*session.RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return session.NewRedisStore(rdb), mr
}

func TestRedisStore_SaveAndGet(t *testing.T) {
	store, mr := setup(t)
	ctx := context.Background()

	s := &models.Session{
		ID:        "abc",
		Username:  "alice",
		IsAdmin:   true,
		Token:     "tok",
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := store.Save(ctx, s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if ttl := mr.TTL("session:abc"); ttl <= 0 || ttl > time.Hour {
		t.Errorf("Expected TTL within an hour, got %s", ttl)
	}

	got, err := store.Get(ctx, "abc")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Username != "alice" || !got.IsAdmin || got.Token != "tok" {
		t.Errorf("Unexpected session %+v", got)
	}
}

func TestRedisStore_GetMissing(t *testing.T) {
	store, _ := setup(t)

	if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := store.Get(context.Background(), ""); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for empty id, got %v", err)
	}
}

func TestRedisStore_SaveExpired(t *testing.T) {
	store, _ := setup(t)

	s := &models.Session{ID: "old", Token: "tok", ExpiresAt: time.Now().Add(-time.Minute)}
	if err := store.Save(context.Background(), s); err == nil {
		t.Error("Saving an expired session should fail")
	}
}

func TestRedisStore_ExpiresWithTTL(t *testing.T) {
	store, mr := setup(t)
	ctx := context.Background()

	s := &models.Session{ID: "short", Token: "tok", ExpiresAt: time.Now().Add(time.Minute)}
	if err := store.Save(ctx, s); err != nil {
		t.Fatalf("Save: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	if _, err := store.Get(ctx, "short"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("Expected expired session to be gone, got %v", err)
	}
}

func TestRedisStore_DeleteIsIdempotent(t *testing.T) {
	store, _ := setup(t)
	ctx := context.Background()

	s := &models.Session{ID: "d", Token: "tok", ExpiresAt: time.Now().Add(time.Hour)}
	if err := store.Save(ctx, s); err != nil {
		t.Fatalf("Save: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := store.Delete(ctx, "d"); err != nil {
			t.Errorf("Delete #%d: %v", i+1, err)
		}
	}
	if err := store.Delete(ctx, ""); err != nil {
		t.Errorf("Delete of empty id: %v", err)
	}
}

func TestRedisStore_TouchExtends(t *testing.T) {
	store, mr := setup(t)
	ctx := context.Background()

	s := &models.Session{ID: "abc", Username: "alice", Token: "tok", ExpiresAt: time.Now().Add(time.Minute)}
	if err := store.Save(ctx, s); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Touch(ctx, s, time.Hour); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	if ttl := mr.TTL("session:abc"); ttl <= 30*time.Minute {
		t.Errorf("Expected TTL near an hour, got %s", ttl)
	}
	got, err := store.Get(ctx, "abc")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if time.Until(got.ExpiresAt) <= 30*time.Minute {
		t.Errorf("Stored expiry should be extended, got %s", got.ExpiresAt)
	}
}

func TestRedisStore_TouchCappedByTokenExpiry(t *testing.T) {
	store, mr := setup(t)
	ctx := context.Background()

	tokenExp := time.Now().Add(10 * time.Minute)
	s := &models.Session{ID: "abc", Token: "tok", ExpiresAt: time.Now().Add(time.Minute), TokenExpiresAt: tokenExp}
	if err := store.Save(ctx, s); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Touch(ctx, s, time.Hour); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	if !s.ExpiresAt.Equal(tokenExp) {
		t.Errorf("Expected expiry capped at %s, got %s", tokenExp, s.ExpiresAt)
	}
	if ttl := mr.TTL("session:abc"); ttl > 10*time.Minute {
		t.Errorf("TTL must not pass the token expiry, got %s", ttl)
	}
}

func TestRedisStore_TouchDoesNotResurrect(t *testing.T) {
	store, mr := setup(t)
	ctx := context.Background()

	s := &models.Session{ID: "abc", Token: "tok", ExpiresAt: time.Now().Add(time.Minute)}
	if err := store.Touch(ctx, s, time.Hour); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for a deleted session, got %v", err)
	}
	if mr.Exists("session:abc") {
		t.Error("Touch must not create a session")
	}
}
