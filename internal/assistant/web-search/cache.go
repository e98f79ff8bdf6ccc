// internal/assistant/web-search/cache.go
package websearch

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"garage-assistant/internal/common/logger"
	"garage-assistant/internal/models"
)

const redisKeyPrefix = "assistant:websearch:"

// Cache stores search results keyed by normalized query. Get must treat entries
// older than the TTL as misses.
type Cache interface {
	Get(ctx context.Context, key string) ([]models.SearchResult, bool)
	Set(ctx context.Context, key string, results []models.SearchResult)
}

type memoryEntry struct {
	results   []models.SearchResult
	fetchedAt time.Time
}

// MemoryCache is a process-wide in-memory Cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     Clock
}

func NewMemoryCache(ttl time.Duration, clock Clock) *MemoryCache {
	if clock == nil {
		clock = time.Now
	}
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     clock,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]models.SearchResult, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.fetchedAt) >= c.ttl {
		c.mu.Lock()
		// a concurrent Set may have refreshed it
		if cur, still := c.entries[key]; still && cur.fetchedAt.Equal(e.fetchedAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return copyResults(e.results), true
}

func (c *MemoryCache) Set(_ context.Context, key string, results []models.SearchResult) {
	c.mu.Lock()
	c.entries[key] = memoryEntry{results: copyResults(results), fetchedAt: c.now()}
	c.mu.Unlock()
}

// Len returns the number of stored entries, stale ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// RedisCache shares results across assistant instances. Entries carry their
// fetch time so staleness is checked on read, and Redis expiry reclaims them.
type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration
	now    Clock
	logger logger.Logger
}

func NewRedisCache(client redis.Cmdable, ttl time.Duration, clock Clock, log logger.Logger) *RedisCache {
	if clock == nil {
		clock = time.Now
	}
	return &RedisCache{
		client: client,
		ttl:    ttl,
		now:    clock,
		logger: logger.ForComponent(log, ComponentName),
	}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]models.SearchResult, bool) {
	data, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("search cache read failed", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
		return nil, false
	}

	var env cacheEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.logger.Warn("search cache entry corrupt", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return nil, false
	}
	if c.now().Sub(env.FetchedAt) >= c.ttl {
		return nil, false
	}
	return env.Results, true
}

func (c *RedisCache) Set(ctx context.Context, key string, results []models.SearchResult) {
	data, err := json.Marshal(cacheEnvelope{FetchedAt: c.now().UTC(), Results: results})
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, redisKeyPrefix+key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("search cache write failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
}

func copyResults(in []models.SearchResult) []models.SearchResult {
	if in == nil {
		return nil
	}
	out := make([]models.SearchResult, len(in))
	copy(out, in)
	return out
}
