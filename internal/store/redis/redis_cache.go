package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisCache implements PayloadCache on a Redis server.
type RedisCache struct {
	client *redis.Client
}

var _ PayloadCache = (*RedisCache)(nil)

// NewRedisCache creates a new Redis cache instance
func NewRedisCache(addr string, db int) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   db,
		}),
	}
}

// Ping checks the connection.
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Get retrieves a value from the cache. A miss yields "" and no error.
func (r *RedisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

// Put stores a value in the cache
func (r *RedisCache) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return r.client.Set(ctx, key, value, ttl).Err()
}

// Delete removes values from the cache
func (r *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

// Close closes the Redis client connection
func (r *RedisCache) Close() error {
	return r.client.Close()
}
