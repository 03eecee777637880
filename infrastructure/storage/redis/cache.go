// Package redis provides a Redis-backed schema cache.
package redis

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/queryagent/domain/cache"
)

// Cache is a Redis-backed implementation of cache.Cache.
type Cache struct {
	client    *redis.Client
	keyPrefix string
	hits      atomic.Int64
	misses    atomic.Int64
}

// Config configures the Redis cache.
type Config struct {
	// Address is the Redis host:port.
	Address string

	// Password authenticates the connection, empty for none.
	Password string

	// DB selects the Redis logical database.
	DB int

	// KeyPrefix namespaces all keys written by this cache.
	KeyPrefix string

	// DialTimeout bounds connection establishment (default 5s).
	DialTimeout time.Duration
}

// NewCache creates a Redis cache and verifies connectivity.
func NewCache(cfg Config) (*Cache, error) {
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Address,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Join(cache.ErrConnectionFailed, err)
	}

	return &Cache{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

// NewCacheFromClient creates a cache from an existing Redis client.
func NewCacheFromClient(client *redis.Client, keyPrefix string) *Cache {
	return &Cache{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (c *Cache) prefixKey(key string) string {
	return c.keyPrefix + "schema:" + key
}

// Get retrieves a value from the cache.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := c.client.Get(ctx, c.prefixKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.misses.Add(1)
			return nil, false, nil
		}
		return nil, false, errors.Join(cache.ErrConnectionFailed, err)
	}

	c.hits.Add(1)
	return value, true, nil
}

// Set stores a value with the given TTL.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefixKey(key), value, ttl).Err(); err != nil {
		return errors.Join(cache.ErrConnectionFailed, err)
	}
	return nil
}

// Delete removes a cached entry.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.prefixKey(key)).Err(); err != nil {
		return errors.Join(cache.ErrConnectionFailed, err)
	}
	return nil
}

// Stats returns hit/miss counters.
func (c *Cache) Stats() cache.Stats {
	return cache.Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
	}
}

// Close releases the underlying client.
func (c *Cache) Close() error {
	return c.client.Close()
}
