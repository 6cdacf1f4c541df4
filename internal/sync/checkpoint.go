package sync

import (
	"context"
	"fmt"
	"time"
)

const defaultLookback = 24 * time.Hour

// checkpointStore is the slice of the Redis client the checkpoint needs.
type checkpointStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	CounterKey(name string) string
}

// Checkpoint persists the sync watermark: the point in time up to which
// upstream changes have been reconciled. Kept in Redis so a restarted worker
// does not re-sweep the whole history.
type Checkpoint struct {
	store    checkpointStore
	name     string
	lookback time.Duration
}

// NewCheckpoint builds a named watermark. Lookback bounds how far back the
// first run after a cold start reaches.
func NewCheckpoint(store checkpointStore, name string, lookback time.Duration) (*Checkpoint, error) {
	if store == nil {
		return nil, fmt.Errorf("checkpoint store required")
	}
	if name == "" {
		return nil, fmt.Errorf("checkpoint name required")
	}
	if lookback <= 0 {
		lookback = defaultLookback
	}
	return &Checkpoint{store: store, name: name, lookback: lookback}, nil
}

// Last returns the stored watermark, or now minus the lookback when none is
// stored or the stored value is unreadable.
func (c *Checkpoint) Last(ctx context.Context) time.Time {
	fallback := time.Now().UTC().Add(-c.lookback)
	raw, err := c.store.Get(ctx, c.store.CounterKey(c.name))
	if err != nil || raw == "" {
		return fallback
	}
	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return fallback
	}
	return parsed
}

// Advance moves the watermark forward. Watermarks never expire.
func (c *Checkpoint) Advance(ctx context.Context, to time.Time) error {
	return c.store.Set(ctx, c.store.CounterKey(c.name), to.UTC().Format(time.RFC3339Nano), 0)
}
