package cache

import (
	"context"
	"time"

	"github.com/felixgeelhaar/nourish/pkg/observability"
)

// Instrumented counts hits and misses of an underlying cache.
type Instrumented[V any] struct {
	inner   Cache[V]
	metrics observability.Metrics
	name    string
}

// NewInstrumented wraps inner, tagging metrics with name.
func NewInstrumented[V any](inner Cache[V], metrics observability.Metrics, name string) *Instrumented[V] {
	return &Instrumented[V]{inner: inner, metrics: observability.OrNoop(metrics), name: name}
}

func (c *Instrumented[V]) Get(ctx context.Context, key string) (V, bool) {
	value, ok := c.inner.Get(ctx, key)
	if ok {
		c.metrics.Counter(observability.MetricCacheHits, 1, observability.T("cache", c.name))
	} else {
		c.metrics.Counter(observability.MetricCacheMisses, 1, observability.T("cache", c.name))
	}
	return value, ok
}

func (c *Instrumented[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) {
	c.inner.Set(ctx, key, value, ttl)
}

func (c *Instrumented[V]) Invalidate(ctx context.Context, key string) {
	c.inner.Invalidate(ctx, key)
}
