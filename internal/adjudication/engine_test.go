package adjudication

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/openclaims/harrier/internal/domain"
)

func newTestClaim(items ...domain.ClaimItem) *domain.Claim {
	total := decimal.Zero
	for i := range items {
		items[i].ID = items[i].ServiceCode + "-item"
		items[i].ClaimID = "claim-001"
		items[i].Status = domain.ItemStatusPending
		total = total.Add(items[i].TotalPrice)
	}
	return &domain.Claim{
		ID:          "claim-001",
		MemberID:    "member-001",
		ProviderID:  "provider-001",
		InsurerID:   "insurer-001",
		Items:       items,
		TotalAmount: total,
		Status:      domain.ClaimStatusSubmitted,
	}
}

func item(code string, price int64) domain.ClaimItem {
	return domain.ClaimItem{
		ServiceCode: code,
		Quantity:    1,
		UnitPrice:   decimal.NewFromInt(price),
		TotalPrice:  decimal.NewFromInt(price),
	}
}

func coverageWith(remaining int64, inNetwork float64) *domain.BenefitsCoverage {
	return &domain.BenefitsCoverage{
		Deductible: domain.DeductibleState{
			Individual:          decimal.NewFromInt(1000),
			RemainingIndividual: decimal.NewFromInt(remaining),
		},
		Coinsurance: domain.CoinsuranceRates{
			InNetwork:    decimal.NewFromFloat(inNetwork),
			OutOfNetwork: decimal.NewFromFloat(0.40),
		},
		Copays: map[domain.ServiceClass]decimal.Decimal{
			domain.ServicePrimaryCare:   decimal.NewFromInt(25),
			domain.ServiceSpecialist:    decimal.NewFromInt(50),
			domain.ServiceEmergencyRoom: decimal.NewFromInt(250),
			domain.ServiceUrgentCare:    decimal.NewFromInt(75),
		},
		PreventiveCareCovered: true,
		ExcludedServices:      make(map[string]bool),
	}
}

func TestAdjudicateDeductibleAndCoinsurance(t *testing.T) {
	engine := NewEngine(nil)

	// One 200.00 lab item, 50.00 deductible left, 20% in-network coinsurance:
	// member owes 50 + 30, plan approves 120.
	claim := newTestClaim(item("80050", 200))
	coverage := coverageWith(50, 0.20)

	adjustments, err := engine.Adjudicate(context.Background(), claim, coverage)
	if err != nil {
		t.Fatalf("adjudicate failed: %v", err)
	}

	if !claim.ApprovedAmount.Equal(decimal.NewFromInt(120)) {
		t.Errorf("approved: expected 120, got %s", claim.ApprovedAmount)
	}
	if !claim.MemberResponsibility.Equal(decimal.NewFromInt(80)) {
		t.Errorf("member responsibility: expected 80, got %s", claim.MemberResponsibility)
	}
	if claim.Status != domain.ClaimStatusPartiallyApproved {
		t.Errorf("expected PARTIALLY_APPROVED, got %s", claim.Status)
	}

	if len(adjustments) != 2 {
		t.Fatalf("expected 2 adjustments, got %d", len(adjustments))
	}
	if adjustments[0].AdjustmentType != domain.AdjustmentDeductible || !adjustments[0].Amount.Equal(decimal.NewFromInt(50)) {
		t.Errorf("first adjustment: expected DEDUCTIBLE 50, got %s %s", adjustments[0].AdjustmentType, adjustments[0].Amount)
	}
	if adjustments[1].AdjustmentType != domain.AdjustmentCoinsurance || !adjustments[1].Amount.Equal(decimal.NewFromInt(30)) {
		t.Errorf("second adjustment: expected COINSURANCE 30, got %s %s", adjustments[1].AdjustmentType, adjustments[1].Amount)
	}

	if !coverage.Deductible.RemainingIndividual.IsZero() {
		t.Errorf("remaining deductible should be consumed, got %s", coverage.Deductible.RemainingIndividual)
	}
}

func TestAdjudicateExcludedService(t *testing.T) {
	engine := NewEngine(nil)

	claim := newTestClaim(item("97810", 150))
	coverage := coverageWith(0, 0.20)
	coverage.ExcludedServices["97810"] = true

	adjustments, err := engine.Adjudicate(context.Background(), claim, coverage)
	if err != nil {
		t.Fatalf("adjudicate failed: %v", err)
	}

	if claim.Status != domain.ClaimStatusDenied {
		t.Errorf("expected DENIED, got %s", claim.Status)
	}
	if claim.DenialReason == "" {
		t.Error("expected a denial reason")
	}
	if !claim.ApprovedAmount.IsZero() {
		t.Errorf("expected zero approved, got %s", claim.ApprovedAmount)
	}
	if !claim.MemberResponsibility.Equal(decimal.NewFromInt(150)) {
		t.Errorf("member owes full price, got %s", claim.MemberResponsibility)
	}

	it := claim.Items[0]
	if it.Status != domain.ItemStatusDenied || !it.IsExcludedService {
		t.Errorf("item should be denied as excluded, got status %s excluded %v", it.Status, it.IsExcludedService)
	}

	if len(adjustments) != 1 || adjustments[0].AdjustmentType != domain.AdjustmentNonCovered {
		t.Fatalf("expected one NON_COVERED adjustment, got %v", adjustments)
	}
}

func TestAdjudicatePreventiveBypass(t *testing.T) {
	engine := NewEngine(nil)

	preventive := item("99395", 180)
	preventive.IsPreventiveCare = true
	claim := newTestClaim(preventive)
	coverage := coverageWith(500, 0.20)

	adjustments, err := engine.Adjudicate(context.Background(), claim, coverage)
	if err != nil {
		t.Fatalf("adjudicate failed: %v", err)
	}

	if claim.Status != domain.ClaimStatusApproved {
		t.Errorf("expected APPROVED, got %s", claim.Status)
	}
	if !claim.ApprovedAmount.Equal(decimal.NewFromInt(180)) {
		t.Errorf("expected full approval, got %s", claim.ApprovedAmount)
	}
	if !claim.MemberResponsibility.IsZero() {
		t.Errorf("preventive care carries no member share, got %s", claim.MemberResponsibility)
	}
	if len(adjustments) != 0 {
		t.Errorf("preventive bypass should emit no adjustments, got %d", len(adjustments))
	}
	if !coverage.Deductible.RemainingIndividual.Equal(decimal.NewFromInt(500)) {
		t.Errorf("deductible must be untouched, got %s", coverage.Deductible.RemainingIndividual)
	}
}

func TestAdjudicatePreventiveNotCovered(t *testing.T) {
	engine := NewEngine(nil)

	preventive := item("80050", 100)
	preventive.IsPreventiveCare = true
	claim := newTestClaim(preventive)
	coverage := coverageWith(0, 0.20)
	coverage.PreventiveCareCovered = false

	if _, err := engine.Adjudicate(context.Background(), claim, coverage); err != nil {
		t.Fatalf("adjudicate failed: %v", err)
	}

	// Falls through to normal cost sharing: 20% of 100.
	if !claim.MemberResponsibility.Equal(decimal.NewFromInt(20)) {
		t.Errorf("expected member share 20, got %s", claim.MemberResponsibility)
	}
}

func TestAdjudicateDeductibleThreadsAcrossItems(t *testing.T) {
	engine := NewEngine(nil)

	claim := newTestClaim(item("80050", 80), item("80051", 100))
	coverage := coverageWith(100, 0)

	adjustments, err := engine.Adjudicate(context.Background(), claim, coverage)
	if err != nil {
		t.Fatalf("adjudicate failed: %v", err)
	}

	// First item consumes 80 of deductible, second only the remaining 20.
	var deductibles []decimal.Decimal
	for _, adj := range adjustments {
		if adj.AdjustmentType == domain.AdjustmentDeductible {
			deductibles = append(deductibles, adj.Amount)
		}
	}
	if len(deductibles) != 2 {
		t.Fatalf("expected 2 deductible adjustments, got %d", len(deductibles))
	}
	if !deductibles[0].Equal(decimal.NewFromInt(80)) || !deductibles[1].Equal(decimal.NewFromInt(20)) {
		t.Errorf("expected deductibles 80 then 20, got %s then %s", deductibles[0], deductibles[1])
	}
	if !claim.MemberResponsibility.Equal(decimal.NewFromInt(100)) {
		t.Errorf("member owes exactly the deductible, got %s", claim.MemberResponsibility)
	}
}

func TestAdjudicateCopay(t *testing.T) {
	engine := NewEngine(nil)

	t.Run("PrimaryCareVisit", func(t *testing.T) {
		claim := newTestClaim(item("99213", 120))
		coverage := coverageWith(0, 0)

		adjustments, err := engine.Adjudicate(context.Background(), claim, coverage)
		if err != nil {
			t.Fatalf("adjudicate failed: %v", err)
		}

		if len(adjustments) != 1 || adjustments[0].AdjustmentType != domain.AdjustmentCopay {
			t.Fatalf("expected one COPAY adjustment, got %v", adjustments)
		}
		if !adjustments[0].Amount.Equal(decimal.NewFromInt(25)) {
			t.Errorf("expected primary care copay 25, got %s", adjustments[0].Amount)
		}
	})

	t.Run("EmergencyVisit", func(t *testing.T) {
		claim := newTestClaim(item("99284", 900))
		coverage := coverageWith(0, 0)

		adjustments, err := engine.Adjudicate(context.Background(), claim, coverage)
		if err != nil {
			t.Fatalf("adjudicate failed: %v", err)
		}

		if len(adjustments) != 1 || !adjustments[0].Amount.Equal(decimal.NewFromInt(250)) {
			t.Fatalf("expected emergency copay 250, got %v", adjustments)
		}
	})

	t.Run("CopayCappedAtRemaining", func(t *testing.T) {
		// 30.00 visit with a 25.00 copay after a 10.00 deductible: only
		// 20.00 remains, so the copay is capped.
		claim := newTestClaim(item("99213", 30))
		coverage := coverageWith(10, 0)

		adjustments, err := engine.Adjudicate(context.Background(), claim, coverage)
		if err != nil {
			t.Fatalf("adjudicate failed: %v", err)
		}

		var copay decimal.Decimal
		for _, adj := range adjustments {
			if adj.AdjustmentType == domain.AdjustmentCopay {
				copay = adj.Amount
			}
		}
		if !copay.Equal(decimal.NewFromInt(20)) {
			t.Errorf("expected capped copay 20, got %s", copay)
		}
		if !claim.MemberResponsibility.Equal(decimal.NewFromInt(30)) {
			t.Errorf("member share cannot exceed item price, got %s", claim.MemberResponsibility)
		}
	})

	t.Run("LabCodeCarriesNoCopay", func(t *testing.T) {
		claim := newTestClaim(item("80050", 60))
		coverage := coverageWith(0, 0)

		adjustments, err := engine.Adjudicate(context.Background(), claim, coverage)
		if err != nil {
			t.Fatalf("adjudicate failed: %v", err)
		}

		if len(adjustments) != 0 {
			t.Errorf("expected no adjustments, got %d", len(adjustments))
		}
		if claim.Status != domain.ClaimStatusApproved {
			t.Errorf("expected APPROVED, got %s", claim.Status)
		}
	})
}

func TestAdjudicateOutOfNetworkCoinsurance(t *testing.T) {
	engine := NewEngine(nil)

	claim := newTestClaim(item("80050", 100))
	claim.IsOutOfNetwork = true
	coverage := coverageWith(0, 0.20)

	if _, err := engine.Adjudicate(context.Background(), claim, coverage); err != nil {
		t.Fatalf("adjudicate failed: %v", err)
	}

	if !claim.MemberResponsibility.Equal(decimal.NewFromInt(40)) {
		t.Errorf("expected 40%% out-of-network share, got %s", claim.MemberResponsibility)
	}
}

func TestAdjudicateConservation(t *testing.T) {
	engine := NewEngine(nil)

	claim := newTestClaim(
		item("99213", 120),
		item("80050", 200),
		item("99284", 850),
	)
	coverage := coverageWith(300, 0.20)

	if _, err := engine.Adjudicate(context.Background(), claim, coverage); err != nil {
		t.Fatalf("adjudicate failed: %v", err)
	}

	for _, it := range claim.Items {
		sum := it.ApprovedAmount.Add(it.MemberResponsibility)
		if !sum.Equal(it.TotalPrice) {
			t.Errorf("item %s: approved %s + member %s != price %s",
				it.ServiceCode, it.ApprovedAmount, it.MemberResponsibility, it.TotalPrice)
		}
	}

	total := claim.ApprovedAmount.Add(claim.MemberResponsibility)
	if !total.Equal(claim.TotalAmount) {
		t.Errorf("claim totals do not conserve: %s + %s != %s",
			claim.ApprovedAmount, claim.MemberResponsibility, claim.TotalAmount)
	}
}

func TestAdjudicateInvalidState(t *testing.T) {
	engine := NewEngine(nil)

	for _, status := range []domain.ClaimStatus{
		domain.ClaimStatusPaid,
		domain.ClaimStatusVoid,
		domain.ClaimStatusApproved,
		domain.ClaimStatusDenied,
	} {
		claim := newTestClaim(item("80050", 100))
		claim.Status = status

		_, err := engine.Adjudicate(context.Background(), claim, coverageWith(0, 0.20))
		var stateErr *domain.InvalidStateError
		if !errors.As(err, &stateErr) {
			t.Errorf("status %s: expected InvalidStateError, got %v", status, err)
		}
	}
}

func TestAdjudicateFullApproval(t *testing.T) {
	engine := NewEngine(nil)

	claim := newTestClaim(item("80050", 100))
	coverage := coverageWith(0, 0)

	if _, err := engine.Adjudicate(context.Background(), claim, coverage); err != nil {
		t.Fatalf("adjudicate failed: %v", err)
	}

	if claim.Status != domain.ClaimStatusApproved {
		t.Errorf("expected APPROVED, got %s", claim.Status)
	}
	if !claim.PaidAmount.Equal(claim.ApprovedAmount) {
		t.Errorf("paid should equal approved, got %s vs %s", claim.PaidAmount, claim.ApprovedAmount)
	}
}

func TestAdjudicateCanceledContext(t *testing.T) {
	engine := NewEngine(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	claim := newTestClaim(item("80050", 100))
	if _, err := engine.Adjudicate(ctx, claim, coverageWith(0, 0.20)); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestPrefixClassifier(t *testing.T) {
	classifier := DefaultClassifier()

	cases := []struct {
		code  string
		class domain.ServiceClass
		ok    bool
	}{
		{"99213", domain.ServicePrimaryCare, true},
		{"99244", domain.ServiceSpecialist, true},
		{"99253", domain.ServiceSpecialist, true},
		{"99284", domain.ServiceEmergencyRoom, true},
		{"99231", domain.ServiceUrgentCare, true},
		{"80050", "", false},
		{"J1100", "", false},
	}

	for _, tc := range cases {
		class, ok := classifier.Classify(tc.code)
		if ok != tc.ok || class != tc.class {
			t.Errorf("Classify(%s) = %s,%v; want %s,%v", tc.code, class, ok, tc.class, tc.ok)
		}
	}
}
