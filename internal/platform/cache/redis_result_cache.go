// Package cache provides caching implementations for repository interfaces.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"stock_watchlist/internal/feature/quotes/domain/entity"
	"stock_watchlist/internal/feature/quotes/usecase"
)

// RedisResultCache stores fetched time series in Redis, using the TTL as the
// key expiry. It lets several server processes share fetched results.
type RedisResultCache struct {
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

var _ usecase.ResultCache = (*RedisResultCache)(nil)

// NewRedisResultCache creates a Redis-backed result cache.
// If ttl is 0, it defaults to 5 minutes. If namespace is empty, it uses "quotes".
func NewRedisResultCache(rdb *redis.Client, ttl time.Duration, namespace string) *RedisResultCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if namespace == "" {
		namespace = "quotes"
	}
	return &RedisResultCache{
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}
}

// Get returns a cached time series. Misses, Redis errors and corrupted
// entries all report false; corrupted entries are deleted.
func (c *RedisResultCache) Get(ctx context.Context, key string) (*entity.TimeSeries, bool) {
	if c.rdb == nil {
		return nil, false
	}
	k := c.cacheKey(key)

	b, err := c.rdb.Get(ctx, k).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("redis get failed", "key", k, "error", err)
		}
		return nil, false
	}

	var ts entity.TimeSeries
	if err := json.Unmarshal(b, &ts); err != nil {
		// Delete corrupted cache entry
		_ = c.rdb.Del(ctx, k).Err()
		return nil, false
	}
	return &ts, true
}

// Set stores the time series (best effort).
func (c *RedisResultCache) Set(ctx context.Context, key string, ts *entity.TimeSeries) {
	if c.rdb == nil || ts == nil {
		return
	}
	b, err := json.Marshal(ts)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, c.cacheKey(key), b, c.ttl).Err(); err != nil {
		slog.Warn("redis set failed", "key", c.cacheKey(key), "error", err)
	}
}

// cacheKey prefixes the derived request key with the namespace.
func (c *RedisResultCache) cacheKey(key string) string {
	return c.namespace + ":" + key
}
