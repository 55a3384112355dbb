package fraud

import (
	"fmt"
	"strings"

	"github.com/openclaims/harrier/internal/domain"
)

// compatibilityConfidence reflects that billing two mutually exclusive codes
// on one claim is near-certain error or abuse regardless of context.
const compatibilityConfidence = 90

// evaluateCompatibility fires when a claim bills both members of any
// configured incompatible pair.
func (e *Engine) evaluateCompatibility(claim *domain.Claim, rule *domain.FraudRule, cfg *CompatibilityConfig) (*domain.ClaimFraudAlert, error) {
	codes := claim.ServiceCodes()

	var violated []string
	for _, pair := range cfg.IncompatiblePairs {
		if codes[pair.CodeA] && codes[pair.CodeB] {
			violated = append(violated, fmt.Sprintf("%s+%s", pair.CodeA, pair.CodeB))
		}
	}
	if len(violated) == 0 {
		return nil, nil
	}

	explanation := fmt.Sprintf("claim bills mutually incompatible service codes: %s", strings.Join(violated, ", "))
	return newAlert(claim, rule, compatibilityConfidence, explanation, map[string]any{
		"violatedPairs": violated,
	}), nil
}
