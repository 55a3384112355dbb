package benefits

import (
	"context"
	"log/slog"
	"time"

	"github.com/openclaims/harrier/internal/domain"
)

// RepositoryProvider serves raw benefits from the repository.
type RepositoryProvider struct {
	repo domain.Repository
}

// NewRepositoryProvider creates a repository-backed benefits provider.
func NewRepositoryProvider(repo domain.Repository) *RepositoryProvider {
	return &RepositoryProvider{repo: repo}
}

// GetBenefits returns the member's raw benefits payload.
// Returns domain.ErrBenefitsNotFound when the member has no benefits data.
func (p *RepositoryProvider) GetBenefits(ctx context.Context, memberID string) (domain.RawBenefits, error) {
	return p.repo.GetMemberBenefits(ctx, memberID)
}

// CachingProvider decorates a BenefitsProvider with a cache. Not-found
// results are not cached: a member gaining benefits must become visible
// immediately.
type CachingProvider struct {
	next  domain.BenefitsProvider
	cache domain.Cache
	ttl   time.Duration
}

// NewCachingProvider wraps a provider with cache lookups.
func NewCachingProvider(next domain.BenefitsProvider, cache domain.Cache, ttl time.Duration) *CachingProvider {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachingProvider{next: next, cache: cache, ttl: ttl}
}

// GetBenefits checks the cache before falling back to the wrapped provider.
func (p *CachingProvider) GetBenefits(ctx context.Context, memberID string) (domain.RawBenefits, error) {
	cached, err := p.cache.GetBenefits(ctx, memberID)
	if err != nil {
		slog.Warn("benefits cache read failed", "member_id", memberID, "error", err)
	}
	if cached != nil {
		return cached, nil
	}

	raw, err := p.next.GetBenefits(ctx, memberID)
	if err != nil {
		return nil, err
	}

	if err := p.cache.SetBenefits(ctx, memberID, raw, p.ttl); err != nil {
		slog.Warn("benefits cache write failed", "member_id", memberID, "error", err)
	}

	return raw, nil
}
