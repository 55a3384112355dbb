package fraud

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openclaims/harrier/internal/domain"
)

// evaluateUpcoding checks each configured pattern whose higher code appears on
// the claim: when the provider's historical higher-to-lower billing ratio
// exceeds the pattern threshold, the pattern is a violation. One alert covers
// all violated patterns, scored by the worst ratio-to-threshold overshoot.
func (e *Engine) evaluateUpcoding(ctx context.Context, claim *domain.Claim, rule *domain.FraudRule, cfg *UpcodingConfig) (*domain.ClaimFraudAlert, error) {
	since := time.Now().UTC().AddDate(0, 0, -e.lookbackDays)

	var (
		violations []map[string]any
		descs      []string
		maxScore   float64
	)
	for _, p := range cfg.Patterns {
		if !specialtyApplies(p.Specialties, claim.ProviderSpecialty) {
			continue
		}
		if !claim.HasServiceCode(p.HigherCode) {
			continue
		}

		ratio, err := e.history.CodeUsageRatio(ctx, claim.ProviderID, p.HigherCode, p.LowerCode, since)
		if err != nil {
			return nil, &domain.DataProviderError{Op: "code usage ratio lookup", Err: err}
		}
		if ratio <= p.Threshold {
			continue
		}

		if score := ratio / p.Threshold * 80; score > maxScore {
			maxScore = score
		}
		violations = append(violations, map[string]any{
			"lowerCode":  p.LowerCode,
			"higherCode": p.HigherCode,
			"ratio":      ratio,
			"threshold":  p.Threshold,
		})
		descs = append(descs, fmt.Sprintf("%s over %s at %.2f (threshold %.2f)",
			p.HigherCode, p.LowerCode, ratio, p.Threshold))
	}

	if len(violations) == 0 {
		return nil, nil
	}

	explanation := fmt.Sprintf("provider bills high-level codes at an unusual rate: %s", strings.Join(descs, "; "))
	return newAlert(claim, rule, confidenceScore(maxScore), explanation, map[string]any{
		"violations":   violations,
		"lookbackDays": e.lookbackDays,
	}), nil
}

// specialtyApplies reports whether an upcoding pattern scopes to the
// provider's specialty. An empty list matches every specialty.
func specialtyApplies(specialties []string, specialty string) bool {
	if len(specialties) == 0 {
		return true
	}
	for _, s := range specialties {
		if strings.EqualFold(s, specialty) {
			return true
		}
	}
	return false
}
