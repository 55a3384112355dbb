package adjudication

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openclaims/harrier/internal/domain"
)

type fakeProvider struct {
	raw domain.RawBenefits
	err error
}

func (p *fakeProvider) GetBenefits(ctx context.Context, memberID string) (domain.RawBenefits, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.raw, nil
}

type fakeRepo struct {
	domain.Repository
	savedClaim       *domain.Claim
	savedAdjustments []domain.ClaimAdjustment
	saveErr          error
}

func (r *fakeRepo) SaveAdjudication(ctx context.Context, claim *domain.Claim, adjustments []domain.ClaimAdjustment) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.savedClaim = claim
	r.savedAdjustments = adjustments
	return nil
}

func serviceClaim() *domain.Claim {
	return &domain.Claim{
		ID:          "claim-svc",
		MemberID:    "member-001",
		ProviderID:  "provider-001",
		InsurerID:   "insurer-001",
		Status:      domain.ClaimStatusSubmitted,
		TotalAmount: decimal.NewFromInt(200),
		Items: []domain.ClaimItem{{
			ID:          "item-1",
			ClaimID:     "claim-svc",
			ServiceCode: "80050",
			Quantity:    1,
			UnitPrice:   decimal.NewFromInt(200),
			TotalPrice:  decimal.NewFromInt(200),
			Status:      domain.ItemStatusPending,
		}},
		SubmittedAt: time.Now().UTC(),
	}
}

func TestServiceAdjudicate(t *testing.T) {
	repo := &fakeRepo{}
	provider := &fakeProvider{raw: domain.RawBenefits{
		"deductible": map[string]any{
			"individual":          1000.0,
			"remainingIndividual": 50.0,
		},
	}}
	svc := NewService(NewEngine(nil), provider, repo)

	claim := serviceClaim()
	adjustments, err := svc.Adjudicate(context.Background(), claim)
	if err != nil {
		t.Fatalf("adjudicate failed: %v", err)
	}

	if claim.Status != domain.ClaimStatusPartiallyApproved {
		t.Errorf("expected PARTIALLY_APPROVED, got %s", claim.Status)
	}
	if repo.savedClaim != claim {
		t.Error("adjudicated claim was not persisted")
	}
	if len(repo.savedAdjustments) != len(adjustments) {
		t.Errorf("persisted %d adjustments, returned %d", len(repo.savedAdjustments), len(adjustments))
	}
}

func TestServiceMissingBenefits(t *testing.T) {
	repo := &fakeRepo{}
	provider := &fakeProvider{err: domain.ErrBenefitsNotFound}
	svc := NewService(NewEngine(nil), provider, repo)

	_, err := svc.Adjudicate(context.Background(), serviceClaim())

	var missing *domain.MissingBenefitsError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingBenefitsError, got %v", err)
	}
	if missing.MemberID != "member-001" {
		t.Errorf("expected member-001 in error, got %s", missing.MemberID)
	}
	if repo.savedClaim != nil {
		t.Error("nothing should be persisted on failure")
	}
}

func TestServiceProviderFailure(t *testing.T) {
	repo := &fakeRepo{}
	provider := &fakeProvider{err: errors.New("connection refused")}
	svc := NewService(NewEngine(nil), provider, repo)

	_, err := svc.Adjudicate(context.Background(), serviceClaim())

	var provErr *domain.DataProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected DataProviderError, got %v", err)
	}
}

func TestServicePersistFailure(t *testing.T) {
	repo := &fakeRepo{saveErr: errors.New("disk full")}
	provider := &fakeProvider{raw: domain.RawBenefits{}}
	svc := NewService(NewEngine(nil), provider, repo)

	if _, err := svc.Adjudicate(context.Background(), serviceClaim()); err == nil {
		t.Fatal("expected persistence error to surface")
	}
}
