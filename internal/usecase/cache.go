package usecase

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// Cache abstracts the Redis operations used to memoise solve results.
type Cache interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
}

// RedisCache is a concrete implementation backed by go-redis. A missing key
// surfaces as redis.Nil from Get.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache constructs a new Redis-backed cache adapter.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Set writes a value to Redis.
func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.client.Set(ctx, key, value, expiration).Err()
}

// Get retrieves a cached value from Redis.
func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.client.Get(ctx, key).Result()
}

// Ping checks that the Redis server is reachable.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
