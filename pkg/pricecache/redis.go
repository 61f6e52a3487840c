package pricecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache implements Cache on Redis, enabling a shared prediction
// cache across predictor instances. Entries expire after the configured
// TTL so a redeployed model (new process, new artifact version) does not
// serve stale prices forever from a shared store.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to Redis and verifies the connection.
//
// ttl 0 falls back to 12 hours, long enough to cover an interactive
// session while still turning over daily.
func NewRedisCache(addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	if addr == "" {
		return nil, errors.New("redis address cannot be empty")
	}
	if db < 0 {
		return nil, errors.New("redis database number must be >= 0")
	}
	if ttl == 0 {
		ttl = 12 * time.Hour
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return &RedisCache{client: client, ttl: ttl}, nil
}

// Get fetches the cached price vector for key.
func (c *RedisCache) Get(ctx context.Context, key string) ([]float64, bool, error) {
	data, err := c.client.Get(ctx, redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get prediction from redis: %w", err)
	}

	var prices []float64
	if err := json.Unmarshal(data, &prices); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached prediction: %w", err)
	}
	return prices, true, nil
}

// Put stores prices under key with the configured TTL.
func (c *RedisCache) Put(ctx context.Context, key string, prices []float64) error {
	data, err := json.Marshal(prices)
	if err != nil {
		return fmt.Errorf("failed to marshal prediction: %w", err)
	}
	if err := c.client.Set(ctx, redisKey(key), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store prediction in redis: %w", err)
	}
	return nil
}

// Close releases the underlying Redis connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func redisKey(key string) string {
	return fmt.Sprintf("carvalue:prediction:%s", key)
}
