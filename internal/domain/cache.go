package domain

import (
	"context"
	"time"
)

// Cache defines the interface for caching operations.
// Supports two-phase caching: local LRU + Redis.
type Cache interface {
	// Get retrieves a value from cache.
	// Returns nil, nil if key not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache with expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, key string) error

	// GetBenefits retrieves a cached raw benefits payload for a member.
	// Returns nil, nil on a miss.
	GetBenefits(ctx context.Context, memberID string) (RawBenefits, error)

	// SetBenefits caches a member's raw benefits payload.
	SetBenefits(ctx context.Context, memberID string, raw RawBenefits, ttl time.Duration) error

	// GetRatio retrieves a cached provider code-usage ratio.
	// The second return reports whether the key was present.
	GetRatio(ctx context.Context, key string) (float64, bool, error)

	// SetRatio caches a provider code-usage ratio.
	SetRatio(ctx context.Context, key string, ratio float64, ttl time.Duration) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string `yaml:"type"`

	// Local LRU cache settings
	LocalMaxSize int           `yaml:"localMaxSize"`
	LocalTTL     time.Duration `yaml:"localTtl"`

	// Redis settings
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisDB       int    `yaml:"redisDb"`

	// Two-phase settings
	EnableTwoPhase bool `yaml:"enableTwoPhase"` // If true, check local first, then Redis
}
