package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/openclaims/harrier/internal/domain"
)

// RedisCache implements Cache using Redis.
// Used for multi-node deployments and as L2 in two-phase caching.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new Redis cache.
func NewRedisCache(addr, password string, db int) (*RedisCache, error) {
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// Get retrieves a value from Redis.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.makeKey(key)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Set stores a value in Redis with TTL.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, c.makeKey(key), value, ttl).Err()
}

// Delete removes a value from Redis.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.makeKey(key)).Err()
}

// GetBenefits retrieves a cached raw benefits payload for a member.
func (c *RedisCache) GetBenefits(ctx context.Context, memberID string) (domain.RawBenefits, error) {
	data, err := c.Get(ctx, benefitsKey(memberID))
	if err != nil || data == nil {
		return nil, err
	}

	var raw domain.RawBenefits
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// SetBenefits caches a member's raw benefits payload.
func (c *RedisCache) SetBenefits(ctx context.Context, memberID string, raw domain.RawBenefits, ttl time.Duration) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return c.Set(ctx, benefitsKey(memberID), data, ttl)
}

// GetRatio retrieves a cached provider code-usage ratio.
func (c *RedisCache) GetRatio(ctx context.Context, key string) (float64, bool, error) {
	data, err := c.Get(ctx, key)
	if err != nil || data == nil {
		return 0, false, err
	}

	ratio, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return 0, false, err
	}
	return ratio, true, nil
}

// SetRatio caches a provider code-usage ratio.
func (c *RedisCache) SetRatio(ctx context.Context, key string, ratio float64, ttl time.Duration) error {
	return c.Set(ctx, key, []byte(strconv.FormatFloat(ratio, 'g', -1, 64)), ttl)
}

// Ping checks Redis connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) makeKey(key string) string {
	return "harrier:" + key
}
