// Package cache provides expiring key/value caches for resolved snapshots.
package cache

import (
	"context"
	"time"
)

// Cache stores values with a per-entry time-to-live. A Get after expiry is a miss.
type Cache[V any] interface {
	Get(ctx context.Context, key string) (V, bool)
	Set(ctx context.Context, key string, value V, ttl time.Duration)
	Invalidate(ctx context.Context, key string)
}
