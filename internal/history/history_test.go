package history

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openclaims/harrier/internal/cache"
	"github.com/openclaims/harrier/internal/domain"
)

type fakeRepo struct {
	domain.Repository
	memberClaims   []*domain.Claim
	providerClaims []*domain.Claim
	providerCalls  int
}

func (r *fakeRepo) ClaimsByMember(ctx context.Context, memberID string, since time.Time) ([]*domain.Claim, error) {
	return r.memberClaims, nil
}

func (r *fakeRepo) ClaimsByProvider(ctx context.Context, providerID string, since time.Time) ([]*domain.Claim, error) {
	r.providerCalls++
	return r.providerClaims, nil
}

func claimWithCodes(id string, codes ...string) *domain.Claim {
	claim := &domain.Claim{
		ID:          id,
		MemberID:    "member-001",
		ProviderID:  "provider-001",
		InsurerID:   "insurer-001",
		Status:      domain.ClaimStatusPaid,
		SubmittedAt: time.Now().UTC(),
	}
	for i, code := range codes {
		claim.Items = append(claim.Items, domain.ClaimItem{
			ID:          id + "-item-" + code,
			ClaimID:     id,
			ServiceCode: code,
			Quantity:    1,
			UnitPrice:   decimal.NewFromInt(int64(100 + i)),
			TotalPrice:  decimal.NewFromInt(int64(100 + i)),
			Status:      domain.ItemStatusApproved,
		})
	}
	return claim
}

func TestClaimsByMember(t *testing.T) {
	repo := &fakeRepo{memberClaims: []*domain.Claim{claimWithCodes("c1", "99213")}}
	svc := NewService(repo, nil, 0)

	claims, err := svc.ClaimsByMember(context.Background(), "member-001", time.Now().AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(claims) != 1 || claims[0].ID != "c1" {
		t.Errorf("unexpected claims: %v", claims)
	}

	if _, err := svc.ClaimsByMember(context.Background(), "", time.Now()); err == nil {
		t.Error("expected error for empty memberID")
	}
}

func TestCodeUsageRatio(t *testing.T) {
	repo := &fakeRepo{providerClaims: []*domain.Claim{
		claimWithCodes("c1", "99215", "99215"),
		claimWithCodes("c2", "99215", "99213"),
		claimWithCodes("c3", "99213"),
	}}
	svc := NewService(repo, nil, 0)

	ratio, err := svc.CodeUsageRatio(context.Background(), "provider-001", "99215", "99213", time.Now().AddDate(0, 0, -365))
	if err != nil {
		t.Fatalf("ratio failed: %v", err)
	}
	// 3 occurrences of the higher code over 2 of the lower.
	if ratio != 1.5 {
		t.Errorf("expected ratio 1.5, got %g", ratio)
	}
}

func TestCodeUsageRatioZeroDenominator(t *testing.T) {
	repo := &fakeRepo{providerClaims: []*domain.Claim{
		claimWithCodes("c1", "99215"),
		claimWithCodes("c2", "99215"),
	}}
	svc := NewService(repo, nil, 0)

	ratio, err := svc.CodeUsageRatio(context.Background(), "provider-001", "99215", "99213", time.Now().AddDate(0, 0, -365))
	if err != nil {
		t.Fatalf("ratio failed: %v", err)
	}
	// Lower code never billed: denominator clamps to 1.
	if ratio != 2.0 {
		t.Errorf("expected ratio 2.0, got %g", ratio)
	}
}

func TestCodeUsageRatioCached(t *testing.T) {
	repo := &fakeRepo{providerClaims: []*domain.Claim{
		claimWithCodes("c1", "99215", "99213"),
	}}
	svc := NewService(repo, cache.NewLRUCache(100), time.Minute)

	since := time.Now().AddDate(0, 0, -365)
	first, err := svc.CodeUsageRatio(context.Background(), "provider-001", "99215", "99213", since)
	if err != nil {
		t.Fatalf("ratio failed: %v", err)
	}
	second, err := svc.CodeUsageRatio(context.Background(), "provider-001", "99215", "99213", since)
	if err != nil {
		t.Fatalf("ratio failed: %v", err)
	}

	if first != second {
		t.Errorf("cached ratio differs: %g vs %g", first, second)
	}
	if repo.providerCalls != 1 {
		t.Errorf("expected 1 repository query, got %d", repo.providerCalls)
	}
}

func TestCodeUsageRatioValidation(t *testing.T) {
	svc := NewService(&fakeRepo{}, nil, 0)

	if _, err := svc.CodeUsageRatio(context.Background(), "", "99215", "99213", time.Now()); err == nil {
		t.Error("expected error for empty providerID")
	}
	if _, err := svc.CodeUsageRatio(context.Background(), "provider-001", "", "99213", time.Now()); err == nil {
		t.Error("expected error for empty higherCode")
	}
}
