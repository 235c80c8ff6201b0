package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is a Cache backed by Redis, letting multiple host instances
// share resolved endpoints instead of each holding its own MemoryCache.
type RedisCache struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisCache wraps an existing Redis client. prefix namespaces the keys
// this cache writes, e.g. "runa:directory:".
func NewRedisCache(rdb *redis.Client, prefix string) *RedisCache {
	if prefix == "" {
		prefix = "runa:directory:"
	}
	return &RedisCache{rdb: rdb, prefix: prefix}
}

func (c *RedisCache) key(service string) string {
	return fmt.Sprintf("%s%s", c.prefix, service)
}

// Get retrieves the cached endpoint for service.
func (c *RedisCache) Get(ctx context.Context, service string) (string, bool, error) {
	endpoint, err := c.rdb.Get(ctx, c.key(service)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("directory: redis get %s: %w", service, err)
	}
	return endpoint, true, nil
}

// Set stores the endpoint for service with the given TTL.
func (c *RedisCache) Set(ctx context.Context, service, endpoint string, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, c.key(service), endpoint, ttl).Err(); err != nil {
		return fmt.Errorf("directory: redis set %s: %w", service, err)
	}
	return nil
}

// Delete removes the cached endpoint for service.
func (c *RedisCache) Delete(ctx context.Context, service string) error {
	if err := c.rdb.Del(ctx, c.key(service)).Err(); err != nil {
		return fmt.Errorf("directory: redis del %s: %w", service, err)
	}
	return nil
}
