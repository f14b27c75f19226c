package quota

import (
	"context"
	"fmt"
	"time"

	"nutriscan/internal/infrastructure/store"
)

// Counter is an atomic, TTL-scoped counter over the shared key-value store.
// All mutation goes through the store's atomic increment; the counter never
// holds state in memory.
type Counter struct {
	store store.KV
}

// NewCounter creates a counter over the given store.
func NewCounter(kv store.KV) *Counter {
	return &Counter{store: kv}
}

// Observe increments key and returns the post-increment count. The first
// observation starts the window by setting the expiry. Two concurrent first
// observations can both set it; that approximation is accepted.
func (c *Counter) Observe(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := c.store.Increment(ctx, key)
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := c.store.Expire(ctx, key, window); err != nil {
			return count, err
		}
	}
	return count, nil
}

// Add increments key by n, starting the window when the key is new.
func (c *Counter) Add(ctx context.Context, key string, n int64, window time.Duration) (int64, error) {
	exists, err := c.store.Exists(ctx, key)
	if err != nil {
		return 0, err
	}
	count, err := c.store.IncrementBy(ctx, key, n)
	if err != nil {
		return 0, err
	}
	if !exists {
		if err := c.store.Expire(ctx, key, window); err != nil {
			return count, err
		}
	}
	return count, nil
}

// monthKey returns the key for the current UTC calendar month.
func monthKey(prefix string, now time.Time) string {
	return fmt.Sprintf("%s:%s", prefix, now.UTC().Format("2006-01"))
}

// monthWindow returns the time remaining until the end of the current UTC
// calendar month.
func monthWindow(now time.Time) time.Duration {
	now = now.UTC()
	end := time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	return end.Sub(now)
}
