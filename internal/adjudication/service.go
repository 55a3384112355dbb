package adjudication

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/openclaims/harrier/internal/benefits"
	"github.com/openclaims/harrier/internal/domain"
)

// Service wires the adjudication engine to its collaborators: the benefits
// provider and the repository. Adjudication errors are fatal to the attempt
// and surface to the caller unmutated; no partial results are persisted.
type Service struct {
	engine   *Engine
	provider domain.BenefitsProvider
	repo     domain.Repository
}

// NewService creates an adjudication service.
func NewService(engine *Engine, provider domain.BenefitsProvider, repo domain.Repository) *Service {
	return &Service{
		engine:   engine,
		provider: provider,
		repo:     repo,
	}
}

// Adjudicate resolves the member's coverage, adjudicates the claim, and
// persists the updated claim, items, and adjustments atomically.
func (s *Service) Adjudicate(ctx context.Context, claim *domain.Claim) ([]domain.ClaimAdjustment, error) {
	raw, err := s.provider.GetBenefits(ctx, claim.MemberID)
	if err != nil {
		if errors.Is(err, domain.ErrBenefitsNotFound) {
			return nil, &domain.MissingBenefitsError{MemberID: claim.MemberID, Err: err}
		}
		return nil, &domain.DataProviderError{Op: "benefits lookup", Err: err}
	}

	coverage := benefits.Resolve(raw)

	adjustments, err := s.engine.Adjudicate(ctx, claim, &coverage)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SaveAdjudication(ctx, claim, adjustments); err != nil {
		return nil, fmt.Errorf("failed to persist adjudication: %w", err)
	}

	slog.Info("claim adjudicated",
		"claim_id", claim.ID,
		"member_id", claim.MemberID,
		"status", claim.Status,
		"approved", claim.ApprovedAmount.String(),
		"member_responsibility", claim.MemberResponsibility.String(),
		"adjustments", len(adjustments),
	)

	return adjustments, nil
}
