// Package adjudication applies a member's benefit coverage to a claim,
// producing per-item payment decisions and an audit trail of adjustments.
package adjudication

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/openclaims/harrier/internal/domain"
)

var tracer = otel.Tracer("harrier-adjudication")

// Engine adjudicates claims against resolved benefit coverage. Stateless
// between invocations; safe for concurrent use across different claims.
type Engine struct {
	classifier CopayClassifier
}

// NewEngine creates an adjudication engine. A nil classifier selects the
// default prefix-based copay taxonomy.
func NewEngine(classifier CopayClassifier) *Engine {
	if classifier == nil {
		classifier = DefaultClassifier()
	}
	return &Engine{classifier: classifier}
}

// Adjudicate applies coverage to the claim, mutating the claim and its items
// in place and returning the emitted adjustments. The coverage's remaining
// individual deductible is consumed as items are processed, in the order
// supplied; items within one claim must not be processed concurrently.
func (e *Engine) Adjudicate(ctx context.Context, claim *domain.Claim, coverage *domain.BenefitsCoverage) ([]domain.ClaimAdjustment, error) {
	ctx, span := tracer.Start(ctx, "adjudicate")
	defer span.End()
	span.SetAttributes(
		attribute.String("claim.id", claim.ID),
		attribute.Int("claim.items", len(claim.Items)),
	)

	if !claim.Status.Adjudicable() {
		return nil, &domain.InvalidStateError{ClaimID: claim.ID, Status: claim.Status}
	}

	now := time.Now().UTC()
	var adjustments []domain.ClaimAdjustment

	// Remaining deductible is an explicit accumulator threaded through the
	// item loop: later items depend on deductible exhaustion by earlier ones.
	remainingDeductible := coverage.Deductible.RemainingIndividual

	approvedTotal := decimal.Zero
	memberTotal := decimal.Zero

	for i := range claim.Items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		item := &claim.Items[i]
		itemAdjs, newRemaining := e.adjudicateItem(claim, item, coverage, remainingDeductible, now)
		remainingDeductible = newRemaining

		adjustments = append(adjustments, itemAdjs...)
		approvedTotal = approvedTotal.Add(item.ApprovedAmount)
		memberTotal = memberTotal.Add(item.MemberResponsibility)
	}

	coverage.Deductible.RemainingIndividual = remainingDeductible

	claim.ApprovedAmount = approvedTotal
	claim.PaidAmount = approvedTotal
	claim.MemberResponsibility = memberTotal
	claim.UpdatedAt = now

	switch {
	case approvedTotal.IsZero():
		claim.Status = domain.ClaimStatusDenied
		claim.DenialReason = "no covered amount under current benefit plan"
	case approvedTotal.Equal(claim.TotalAmount):
		claim.Status = domain.ClaimStatusApproved
	default:
		claim.Status = domain.ClaimStatusPartiallyApproved
	}

	span.SetAttributes(
		attribute.String("claim.status", string(claim.Status)),
		attribute.String("claim.approved", approvedTotal.String()),
	)

	return adjustments, nil
}

// adjudicateItem runs the fixed coverage pipeline for one line item:
// exclusion, preventive bypass, deductible, copay, coinsurance. Returns the
// adjustments emitted for the item and the updated remaining deductible.
func (e *Engine) adjudicateItem(claim *domain.Claim, item *domain.ClaimItem, coverage *domain.BenefitsCoverage, remainingDeductible decimal.Decimal, now time.Time) ([]domain.ClaimAdjustment, decimal.Decimal) {
	// 1. Exclusion check: excluded services are denied outright.
	if coverage.ExcludedServices[item.ServiceCode] {
		item.IsExcludedService = true
		item.Status = domain.ItemStatusDenied
		item.DenialReason = fmt.Sprintf("service %s is excluded from coverage", item.ServiceCode)
		item.ApprovedAmount = decimal.Zero
		item.PaidAmount = decimal.Zero
		item.MemberResponsibility = item.TotalPrice

		adj := newAdjustment(claim, item, domain.AdjustmentNonCovered, item.TotalPrice,
			fmt.Sprintf("service %s not covered", item.ServiceCode), now)
		return []domain.ClaimAdjustment{adj}, remainingDeductible
	}

	// 2. Preventive care bypasses all cost sharing when the plan covers it.
	if item.IsPreventiveCare && coverage.PreventiveCareCovered {
		item.Status = domain.ItemStatusApproved
		item.ApprovedAmount = item.TotalPrice
		item.PaidAmount = item.TotalPrice
		item.MemberResponsibility = decimal.Zero
		return nil, remainingDeductible
	}

	var adjustments []domain.ClaimAdjustment
	remaining := item.TotalPrice
	memberShare := decimal.Zero

	// 3. Deductible, never beyond the remaining individual balance.
	deductible := decimal.Min(remaining, remainingDeductible)
	if deductible.IsPositive() {
		remaining = remaining.Sub(deductible)
		memberShare = memberShare.Add(deductible)
		remainingDeductible = remainingDeductible.Sub(deductible)

		adjustments = append(adjustments, newAdjustment(claim, item, domain.AdjustmentDeductible,
			deductible, "applied to annual deductible", now))
	}

	// 4. Copay for copay-bearing codes, floored at the remaining amount.
	if class, ok := e.classifier.Classify(item.ServiceCode); ok {
		copay := decimal.Min(coverage.Copays[class], remaining)
		if copay.IsPositive() {
			remaining = remaining.Sub(copay)
			memberShare = memberShare.Add(copay)

			adjustments = append(adjustments, newAdjustment(claim, item, domain.AdjustmentCopay,
				copay, fmt.Sprintf("%s copay", class), now))
		}
	}

	// 5. Coinsurance on whatever remains after deductible and copay.
	rate := coverage.Coinsurance.InNetwork
	rateLabel := "in-network"
	if claim.IsOutOfNetwork {
		rate = coverage.Coinsurance.OutOfNetwork
		rateLabel = "out-of-network"
	}
	coinsurance := remaining.Mul(rate).Round(2)
	if coinsurance.IsPositive() {
		memberShare = memberShare.Add(coinsurance)

		adjustments = append(adjustments, newAdjustment(claim, item, domain.AdjustmentCoinsurance,
			coinsurance, fmt.Sprintf("%s coinsurance at %s", rateLabel, rate.String()), now))
	}

	// 6. Whatever the member does not owe is approved and paid.
	item.MemberResponsibility = memberShare
	item.ApprovedAmount = item.TotalPrice.Sub(memberShare)
	item.PaidAmount = item.ApprovedAmount
	item.Status = domain.ItemStatusApproved

	return adjustments, remainingDeductible
}

func newAdjustment(claim *domain.Claim, item *domain.ClaimItem, adjType domain.AdjustmentType, amount decimal.Decimal, reason string, now time.Time) domain.ClaimAdjustment {
	return domain.ClaimAdjustment{
		ID:             uuid.New().String(),
		ClaimID:        claim.ID,
		ItemID:         item.ID,
		AdjustmentType: adjType,
		Amount:         amount,
		Reason:         reason,
		AdjustmentDate: now,
	}
}
