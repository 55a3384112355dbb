package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/openclaims/harrier/internal/domain"
)

// New creates a new cache based on configuration.
// "memory" returns an LRU cache. "redis" returns either a plain Redis cache
// or, with two-phase enabled, a TwoPhaseCache wrapping LRU + Redis.
func New(cfg domain.CacheConfig) (domain.Cache, error) {
	switch cfg.Type {
	case "memory":
		return NewLRUCache(cfg.LocalMaxSize), nil

	case "redis":
		if cfg.EnableTwoPhase {
			return NewTwoPhaseCache(cfg)
		}
		return NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}

// TwoPhaseCache implements the two-phase caching strategy.
// L1: Local LRU cache for fast reads
// L2: Redis for distributed caching and persistence
type TwoPhaseCache struct {
	local  *LRUCache
	remote *RedisCache
	l1TTL  time.Duration
}

// NewTwoPhaseCache creates a two-phase cache with LRU + Redis.
func NewTwoPhaseCache(cfg domain.CacheConfig) (*TwoPhaseCache, error) {
	local := NewLRUCache(cfg.LocalMaxSize)

	remote, err := NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis cache: %w", err)
	}

	l1TTL := cfg.LocalTTL
	if l1TTL == 0 {
		l1TTL = 5 * time.Minute
	}

	return &TwoPhaseCache{
		local:  local,
		remote: remote,
		l1TTL:  l1TTL,
	}, nil
}

// Get retrieves from L1 first, then L2. Populates L1 on L2 hit.
func (c *TwoPhaseCache) Get(ctx context.Context, key string) ([]byte, error) {
	// Check L1 first
	val, err := c.local.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if val != nil {
		return val, nil
	}

	// Check L2
	val, err = c.remote.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if val != nil {
		// Populate L1 for future reads
		_ = c.local.Set(ctx, key, val, c.l1TTL)
	}

	return val, nil
}

// Set writes to both L1 and L2.
func (c *TwoPhaseCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	// Write to L1 with shorter TTL
	l1TTL := c.l1TTL
	if ttl < l1TTL {
		l1TTL = ttl
	}
	if err := c.local.Set(ctx, key, value, l1TTL); err != nil {
		return err
	}

	// Write to L2 with full TTL
	return c.remote.Set(ctx, key, value, ttl)
}

// Delete removes from both L1 and L2.
func (c *TwoPhaseCache) Delete(ctx context.Context, key string) error {
	if err := c.local.Delete(ctx, key); err != nil {
		return err
	}
	return c.remote.Delete(ctx, key)
}

// GetBenefits retrieves a cached raw benefits payload for a member.
func (c *TwoPhaseCache) GetBenefits(ctx context.Context, memberID string) (domain.RawBenefits, error) {
	raw, err := c.local.GetBenefits(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if raw != nil {
		return raw, nil
	}

	raw, err = c.remote.GetBenefits(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if raw != nil {
		// Populate L1
		_ = c.local.SetBenefits(ctx, memberID, raw, c.l1TTL)
	}

	return raw, nil
}

// SetBenefits caches a member's raw benefits payload in both L1 and L2.
func (c *TwoPhaseCache) SetBenefits(ctx context.Context, memberID string, raw domain.RawBenefits, ttl time.Duration) error {
	l1TTL := c.l1TTL
	if ttl < l1TTL {
		l1TTL = ttl
	}
	if err := c.local.SetBenefits(ctx, memberID, raw, l1TTL); err != nil {
		return err
	}
	return c.remote.SetBenefits(ctx, memberID, raw, ttl)
}

// GetRatio retrieves a cached provider code-usage ratio.
func (c *TwoPhaseCache) GetRatio(ctx context.Context, key string) (float64, bool, error) {
	ratio, ok, err := c.local.GetRatio(ctx, key)
	if err != nil || ok {
		return ratio, ok, err
	}

	ratio, ok, err = c.remote.GetRatio(ctx, key)
	if err != nil {
		return 0, false, err
	}
	if ok {
		_ = c.local.SetRatio(ctx, key, ratio, c.l1TTL)
	}

	return ratio, ok, nil
}

// SetRatio caches a provider code-usage ratio in both L1 and L2.
func (c *TwoPhaseCache) SetRatio(ctx context.Context, key string, ratio float64, ttl time.Duration) error {
	l1TTL := c.l1TTL
	if ttl < l1TTL {
		l1TTL = ttl
	}
	if err := c.local.SetRatio(ctx, key, ratio, l1TTL); err != nil {
		return err
	}
	return c.remote.SetRatio(ctx, key, ratio, ttl)
}

// Ping checks both L1 and L2 health.
func (c *TwoPhaseCache) Ping(ctx context.Context) error {
	if err := c.local.Ping(ctx); err != nil {
		return fmt.Errorf("L1 ping failed: %w", err)
	}
	if err := c.remote.Ping(ctx); err != nil {
		return fmt.Errorf("L2 ping failed: %w", err)
	}
	return nil
}

// Close closes both L1 and L2.
func (c *TwoPhaseCache) Close() error {
	_ = c.local.Close()
	return c.remote.Close()
}

// Stats returns L1 cache statistics.
func (c *TwoPhaseCache) Stats() (size int, capacity int) {
	return c.local.Stats()
}
