package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "daytrader:series:%s"

// RedisCache stores series as JSON values with a TTL
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to addr. The connection is verified lazily on first use.
func NewRedisCache(addr string, ttl time.Duration) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	return NewRedisCacheWithClient(client, ttl)
}

// NewRedisCacheWithClient wraps an existing client
func NewRedisCacheWithClient(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisCache{client: client, ttl: ttl}
}

// Load returns the cached series, or a miss when the key is absent
func (rc *RedisCache) Load(ctx context.Context, key string) (Series, bool, error) {
	data, err := rc.client.Get(ctx, fmt.Sprintf(redisKeyPrefix, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	var series Series
	if err := json.Unmarshal(data, &series); err != nil {
		return nil, false, fmt.Errorf("redis decode %s: %w", key, err)
	}
	return series, true, nil
}

// Save stores series under key with the cache TTL
func (rc *RedisCache) Save(ctx context.Context, key string, series Series) error {
	data, err := json.Marshal(series)
	if err != nil {
		return fmt.Errorf("redis encode %s: %w", key, err)
	}
	if err := rc.client.Set(ctx, fmt.Sprintf(redisKeyPrefix, key), data, rc.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying connection pool
func (rc *RedisCache) Close() error {
	return rc.client.Close()
}
