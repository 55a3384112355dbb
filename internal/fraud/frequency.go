package fraud

import (
	"context"
	"fmt"

	"github.com/openclaims/harrier/internal/domain"
)

// evaluateFrequency counts the member's claims billing any monitored procedure
// code inside the trailing window, the claim under evaluation included. An
// alert fires when the count strictly exceeds the configured maximum, scored
// proportionally to how far past the limit the member is.
func (e *Engine) evaluateFrequency(ctx context.Context, claim *domain.Claim, rule *domain.FraudRule, cfg *FrequencyConfig) (*domain.ClaimFraudAlert, error) {
	monitored := make(map[string]bool, len(cfg.ProcedureCodes))
	for _, code := range cfg.ProcedureCodes {
		monitored[code] = true
	}

	since := claim.SubmittedAt.AddDate(0, 0, -cfg.TimeframeDays)
	history, err := e.history.ClaimsByMember(ctx, claim.MemberID, since)
	if err != nil {
		return nil, &domain.DataProviderError{Op: "claim history lookup", Err: err}
	}

	occurrences := 0
	var matching []string
	for _, past := range history {
		if past.ID == claim.ID {
			continue
		}
		if billsMonitoredCode(past, monitored) {
			occurrences++
			matching = append(matching, past.ID)
		}
	}
	if billsMonitoredCode(claim, monitored) {
		occurrences++
		matching = append(matching, claim.ID)
	}

	if occurrences <= cfg.MaxOccurrences {
		return nil, nil
	}

	confidence := confidenceScore(float64(occurrences) / float64(cfg.MaxOccurrences) * 70)
	explanation := fmt.Sprintf("member billed monitored procedure codes on %d claims in %d days, above the limit of %d",
		occurrences, cfg.TimeframeDays, cfg.MaxOccurrences)

	return newAlert(claim, rule, confidence, explanation, map[string]any{
		"occurrences":      occurrences,
		"maxOccurrences":   cfg.MaxOccurrences,
		"timeframeDays":    cfg.TimeframeDays,
		"matchingClaimIds": matching,
	}), nil
}

func billsMonitoredCode(claim *domain.Claim, monitored map[string]bool) bool {
	for i := range claim.Items {
		if monitored[claim.Items[i].ServiceCode] {
			return true
		}
	}
	return false
}
