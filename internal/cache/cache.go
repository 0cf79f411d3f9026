// Package cache is a small read-through TTL cache (spec.md §6 Settings:
// "cache.backend {memory|shared}" is a pluggable choice the core doesn't
// make). Used for the Graph auth token, bot principal, and agent
// capability list — values expensive to refetch but cheap to recompute
// on expiry.
package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     any
	expiresAt time.Time
}

// TTL is a single-process, read-through cache keyed by string. A Loader
// supplies a fresh value and its own TTL on miss or expiry.
type TTL struct {
	mu      sync.Mutex
	entries map[string]entry
}

func New() *TTL {
	return &TTL{entries: make(map[string]entry)}
}

// Loader produces a fresh value and how long it may be cached.
type Loader func(ctx context.Context) (value any, ttl time.Duration, err error)

// GetOrLoad returns the cached value for key if unexpired, otherwise calls
// load, caches the result, and returns it.
func (c *TTL) GetOrLoad(ctx context.Context, key string, load Loader) (any, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok && time.Now().Before(e.expiresAt) {
		c.mu.Unlock()
		return e.value, nil
	}
	c.mu.Unlock()

	value, ttl, err := load(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = entry{value: value, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()

	return value, nil
}

// Invalidate removes key, forcing the next GetOrLoad to refetch.
func (c *TTL) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}
