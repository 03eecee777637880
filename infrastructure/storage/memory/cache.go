// Package memory provides in-memory storage backends.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/felixgeelhaar/queryagent/domain/cache"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

func (e *entry) expired() bool {
	return !e.expiresAt.IsZero() && time.Now().After(e.expiresAt)
}

// Cache is an in-memory implementation of cache.Cache with TTL expiration.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	hits    int64
	misses  int64
}

// NewCache creates a new in-memory cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*entry)}
}

// Get retrieves a value from the cache.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || e.expired() {
		if ok {
			delete(c.entries, key)
		}
		c.misses++
		return nil, false, nil
	}

	c.hits++
	value := make([]byte, len(e.value))
	copy(value, e.value)
	return value, true, nil
}

// Set stores a value in the cache.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	e := &entry{value: stored}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = e
	return nil
}

// Delete removes an entry from the cache.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

// Stats returns hit/miss counters.
func (c *Cache) Stats() cache.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cache.Stats{Hits: c.hits, Misses: c.misses}
}
