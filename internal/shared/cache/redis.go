package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/nourish/pkg/observability"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces every key written by Redis.
const DefaultRedisPrefix = "nourish:cache:"

// Redis is a cache shared between instances. Values are JSON encoded and
// expire through native key TTLs. Backend failures are logged and reported
// as misses.
type Redis[V any] struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// NewRedis creates a Redis-backed cache.
func NewRedis[V any](client *redis.Client, prefix string, logger *slog.Logger) *Redis[V] {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &Redis[V]{
		client: client,
		prefix: prefix,
		logger: observability.ForComponent(logger, "cache.redis"),
	}
}

func (r *Redis[V]) key(key string) string {
	return r.prefix + key
}

// Get returns the decoded value for key.
func (r *Redis[V]) Get(ctx context.Context, key string) (V, bool) {
	var value V
	raw, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return value, false
	}
	if err != nil {
		r.logger.Warn("cache read failed", "key", key, observability.ErrorKey, err)
		return value, false
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		r.logger.Warn("cache entry undecodable", "key", key, observability.ErrorKey, err)
		return value, false
	}
	return value, true
}

// Set stores value under key with the given TTL.
func (r *Redis[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		r.logger.Warn("cache entry unencodable", "key", key, observability.ErrorKey, err)
		return
	}
	if err := r.client.Set(ctx, r.key(key), raw, ttl).Err(); err != nil {
		r.logger.Warn("cache write failed", "key", key, observability.ErrorKey, err)
	}
}

// Invalidate deletes key.
func (r *Redis[V]) Invalidate(ctx context.Context, key string) {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		r.logger.Warn("cache invalidation failed", "key", key, observability.ErrorKey, err)
	}
}
