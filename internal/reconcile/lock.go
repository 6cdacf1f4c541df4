package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const defaultOrderLockTTL = 2 * time.Minute

// OrderLocker serializes reconciliation per order number. Two concurrent
// reconciliations of the same order would race the clean-slate replace, so
// the engine takes the lock before touching local state.
type OrderLocker interface {
	// Acquire claims the order. When the claim succeeds it returns a release
	// func; when the order is already claimed it returns (nil, false, nil).
	Acquire(ctx context.Context, orderNumber string) (release func(context.Context), acquired bool, err error)
}

// lockStore defines the Redis operations used by RedisOrderLocker.
type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	LockKey(scope, id string) string
}

// RedisOrderLocker implements OrderLocker with SETNX + TTL. The TTL bounds
// how long a crashed worker can keep an order claimed.
type RedisOrderLocker struct {
	client lockStore
	ttl    time.Duration
}

// NewRedisOrderLocker constructs a Redis-backed per-order lock.
func NewRedisOrderLocker(client lockStore, ttl time.Duration) (*RedisOrderLocker, error) {
	if client == nil {
		return nil, errors.New("redis client required for order lock")
	}
	if ttl <= 0 {
		ttl = defaultOrderLockTTL
	}
	return &RedisOrderLocker{client: client, ttl: ttl}, nil
}

// Acquire claims the per-order lock for the configured TTL.
func (l *RedisOrderLocker) Acquire(ctx context.Context, orderNumber string) (func(context.Context), bool, error) {
	key := l.client.LockKey("reconcile", orderNumber)
	owner := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, owner, l.ttl)
	if err != nil {
		return nil, false, fmt.Errorf("setnx: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	release := func(ctx context.Context) {
		value, err := l.client.Get(ctx, key)
		if err != nil {
			return
		}
		if value != owner {
			// The TTL expired and another worker claimed the order.
			return
		}
		_ = l.client.Del(ctx, key)
	}
	return release, true, nil
}

// NoopOrderLocker grants every claim. Used in tests and single-process runs
// where Redis is not configured.
type NoopOrderLocker struct{}

// Acquire always succeeds.
func (NoopOrderLocker) Acquire(context.Context, string) (func(context.Context), bool, error) {
	return func(context.Context) {}, true, nil
}
