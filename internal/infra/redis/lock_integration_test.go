//go:build integration

package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"moderation-service/internal/config"
	"moderation-service/internal/domain"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	c, err := NewClient(context.Background(), &config.RedisConfig{URL: addr})
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestRedisLocker(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	l := NewLocker(c)
	key := "test:lock:" + time.Now().Format(time.RFC3339Nano)
	t.Cleanup(func() { _ = c.Del(ctx, key) })

	token, err := l.TryLock(ctx, key, 5*time.Second)
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}
	if _, err := l.TryLock(ctx, key, 5*time.Second); !errors.Is(err, domain.ErrLockNotAcquired) {
		t.Fatalf("expected ErrLockNotAcquired, got %v", err)
	}
	if err := l.Unlock(ctx, key, "not-the-token"); err != nil {
		t.Fatalf("foreign unlock: %v", err)
	}
	if _, err := l.TryLock(ctx, key, 5*time.Second); !errors.Is(err, domain.ErrLockNotAcquired) {
		t.Fatalf("foreign token must not release the lock, got %v", err)
	}
	if err := l.Unlock(ctx, key, token); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if _, err := l.TryLock(ctx, key, 5*time.Second); err != nil {
		t.Errorf("expected lock after release, got %v", err)
	}
}
