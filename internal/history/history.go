// Package history provides claim-history lookups for the fraud evaluators.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openclaims/harrier/internal/domain"
)

// Service answers historical queries over persisted claims. Ratio results are
// cached because upcoding patterns hit the same provider/code pair for every
// claim that provider submits.
type Service struct {
	repo     domain.Repository
	cache    domain.Cache
	ratioTTL time.Duration
}

// NewService creates a history service. cache may be nil to disable ratio
// caching; non-positive ratioTTL selects five minutes.
func NewService(repo domain.Repository, cache domain.Cache, ratioTTL time.Duration) *Service {
	if ratioTTL <= 0 {
		ratioTTL = 5 * time.Minute
	}
	return &Service{
		repo:     repo,
		cache:    cache,
		ratioTTL: ratioTTL,
	}
}

// ClaimsByMember returns the member's claims submitted at or after since.
func (s *Service) ClaimsByMember(ctx context.Context, memberID string, since time.Time) ([]*domain.Claim, error) {
	if memberID == "" {
		return nil, fmt.Errorf("memberID is required")
	}
	return s.repo.ClaimsByMember(ctx, memberID, since)
}

// CodeUsageRatio returns how often the provider billed higherCode relative to
// lowerCode since the given time: count(higher) / max(count(lower), 1). A
// provider who never bills the lower code still yields a finite ratio.
func (s *Service) CodeUsageRatio(ctx context.Context, providerID, higherCode, lowerCode string, since time.Time) (float64, error) {
	if providerID == "" || higherCode == "" || lowerCode == "" {
		return 0, fmt.Errorf("providerID, higherCode, and lowerCode are required")
	}

	key := fmt.Sprintf("ratio:%s:%s:%s", providerID, higherCode, lowerCode)
	if s.cache != nil {
		ratio, ok, err := s.cache.GetRatio(ctx, key)
		if err != nil {
			slog.Warn("ratio cache read failed", "key", key, "error", err)
		}
		if ok {
			return ratio, nil
		}
	}

	claims, err := s.repo.ClaimsByProvider(ctx, providerID, since)
	if err != nil {
		return 0, fmt.Errorf("failed to load provider claims: %w", err)
	}

	var higher, lower int
	for _, claim := range claims {
		for i := range claim.Items {
			switch claim.Items[i].ServiceCode {
			case higherCode:
				higher++
			case lowerCode:
				lower++
			}
		}
	}

	denominator := lower
	if denominator < 1 {
		denominator = 1
	}
	ratio := float64(higher) / float64(denominator)

	if s.cache != nil {
		if err := s.cache.SetRatio(ctx, key, ratio, s.ratioTTL); err != nil {
			slog.Warn("ratio cache write failed", "key", key, "error", err)
		}
	}

	return ratio, nil
}
