package embedding

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Redis key prefix for cached embeddings.
	redisKeyPrefix = "visearch:emb:"
	// Default TTL for cached embeddings.
	redisDefaultTTL = 24 * time.Hour
)

// RedisCache is a shared embedding cache backed by Redis, for deployments
// running several service replicas against the same model.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a Redis-backed embedding cache.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = redisDefaultTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

// Get returns the cached embedding for key if present. Redis errors are
// treated as misses; the embedder recomputes.
func (c *RedisCache) Get(ctx context.Context, key string) ([]float32, bool) {
	val, err := c.client.Get(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		return nil, false
	}
	var emb []float32
	if err := json.Unmarshal([]byte(val), &emb); err != nil {
		return nil, false
	}
	return emb, true
}

// Set stores the embedding for key with the configured TTL. Write failures
// are ignored; the cache is best-effort.
func (c *RedisCache) Set(ctx context.Context, key string, value []float32) {
	val, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, redisKeyPrefix+key, val, c.ttl).Err()
}
