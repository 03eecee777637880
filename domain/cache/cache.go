// Package cache provides the domain interface for caching schema
// introspection results between requests.
package cache

import (
	"context"
	"errors"
	"time"
)

// Cache errors.
var (
	// ErrConnectionFailed indicates the cache backend is unreachable.
	ErrConnectionFailed = errors.New("cache connection failed")
)

// Cache defines the interface for introspection caching.
// Implementations may be in-memory or Redis.
type Cache interface {
	// Get retrieves a cached value by key.
	// Returns the value, whether it was found, and any error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with the given key and TTL. Zero TTL means no
	// expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a cached entry by key.
	Delete(ctx context.Context, key string) error
}

// Stats provides cache hit/miss counters.
type Stats struct {
	Hits   int64
	Misses int64
}

// StatsProvider is an optional interface for caches that track statistics.
type StatsProvider interface {
	Stats() Stats
}
