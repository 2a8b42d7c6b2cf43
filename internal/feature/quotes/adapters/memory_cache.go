// Package adapters はquotesフィーチャーのキャッシュ実装を提供します。
package adapters

import (
	"context"
	"sync"
	"time"

	"stock_watchlist/internal/feature/quotes/domain/entity"
	"stock_watchlist/internal/feature/quotes/usecase"
)

// cacheEntry は取得結果と取得時刻の組です。
type cacheEntry struct {
	data      *entity.TimeSeries
	timestamp time.Time
}

// MemoryCache はプロセス内のTTLキャッシュです。
// 期限切れのエントリは削除せず、返さないだけです。
type MemoryCache struct {
	ttl time.Duration
	now func() time.Time

	mu    sync.RWMutex
	items map[string]cacheEntry
}

var _ usecase.ResultCache = (*MemoryCache)(nil)

// NewMemoryCache はMemoryCacheを生成します。ttlが0以下の場合は5分を使用します。
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &MemoryCache{
		ttl:   ttl,
		now:   time.Now,
		items: make(map[string]cacheEntry),
	}
}

// WithClock は鮮度判定に使う時計を差し替えます。
func (c *MemoryCache) WithClock(now func() time.Time) *MemoryCache {
	c.now = now
	return c
}

// Get はTTL内のエントリを返します。
func (c *MemoryCache) Get(_ context.Context, key string) (*entity.TimeSeries, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	if !ok || c.now().Sub(e.timestamp) > c.ttl {
		return nil, false
	}
	return e.data, true
}

// Set は取得結果を現在時刻とともに保存します。
func (c *MemoryCache) Set(_ context.Context, key string, ts *entity.TimeSeries) {
	c.mu.Lock()
	c.items[key] = cacheEntry{data: ts, timestamp: c.now()}
	c.mu.Unlock()
}

// Len は保持しているエントリ数（期限切れを含む）を返します。
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
