package di

import (
	"log/slog"

	"github.com/redis/go-redis/v9"

	"stock_watchlist/internal/feature/quotes/adapters"
	"stock_watchlist/internal/feature/quotes/usecase"
	"stock_watchlist/internal/platform/cache"
)

// NewResultCache creates a ResultCache implementation.
// If Redis is available, it returns a Redis-backed implementation.
// Otherwise, it falls back to the in-process cache.
func NewResultCache(rdb *redis.Client, cfg usecase.Config) usecase.ResultCache {
	if rdb != nil {
		return cache.NewRedisResultCache(rdb, cfg.TTL, "quotes")
	}
	slog.Warn("redis unavailable, quote results are cached in memory")
	return adapters.NewMemoryCache(cfg.TTL)
}

// NewQuoteQueue wires the quote API, the result cache and the metrics into a FetchQueue.
func NewQuoteQueue(market usecase.MarketRepository, rdb *redis.Client, m usecase.Metrics) *usecase.FetchQueue {
	cfg := usecase.LoadConfig()
	return usecase.NewFetchQueue(market, NewResultCache(rdb, cfg), cfg, usecase.WithMetrics(m))
}
