package fraud

import (
	"encoding/json"
	"fmt"

	"github.com/openclaims/harrier/internal/domain"
)

// RuleConfig is a typed fraud rule configuration variant. Each rule type has
// its own schema, decoded and validated when the rule is loaded so that a
// malformed payload is rejected up front instead of failing per claim.
type RuleConfig interface {
	// Validate reports whether the configuration carries the required fields
	// for its rule type.
	Validate() error
}

// FrequencyConfig configures a FREQUENCY rule: too many claims billing any of
// the monitored procedure codes for one member within a trailing window.
type FrequencyConfig struct {
	TimeframeDays  int      `json:"timeframeDays"`
	MaxOccurrences int      `json:"maxOccurrences"`
	ProcedureCodes []string `json:"procedureCodes"`
}

func (c *FrequencyConfig) Validate() error {
	if c.TimeframeDays <= 0 {
		return fmt.Errorf("timeframeDays must be positive")
	}
	if c.MaxOccurrences < 1 {
		return fmt.Errorf("maxOccurrences must be at least 1")
	}
	if len(c.ProcedureCodes) == 0 {
		return fmt.Errorf("procedureCodes is required")
	}
	return nil
}

// CodePair is a pair of mutually incompatible service codes.
type CodePair struct {
	CodeA string `json:"codeA"`
	CodeB string `json:"codeB"`
}

// CompatibilityConfig configures a COMPATIBILITY rule: a claim billing both
// members of any configured pair is a high-certainty conflict.
type CompatibilityConfig struct {
	IncompatiblePairs []CodePair `json:"incompatiblePairs"`
}

func (c *CompatibilityConfig) Validate() error {
	if len(c.IncompatiblePairs) == 0 {
		return fmt.Errorf("incompatiblePairs is required")
	}
	for i, pair := range c.IncompatiblePairs {
		if pair.CodeA == "" || pair.CodeB == "" {
			return fmt.Errorf("incompatiblePairs[%d]: both codes are required", i)
		}
	}
	return nil
}

// UpcodingPattern describes a lower/higher code substitution to monitor.
// An empty Specialties list applies the pattern to all provider specialties.
type UpcodingPattern struct {
	LowerCode   string   `json:"lowerCode"`
	HigherCode  string   `json:"higherCode"`
	Specialties []string `json:"specialties,omitempty"`
	Threshold   float64  `json:"threshold"`
}

// UpcodingConfig configures an UPCODING rule: a provider billing the higher
// code at a historical ratio above the pattern threshold.
type UpcodingConfig struct {
	Patterns []UpcodingPattern `json:"patterns"`
}

func (c *UpcodingConfig) Validate() error {
	if len(c.Patterns) == 0 {
		return fmt.Errorf("patterns is required")
	}
	for i, p := range c.Patterns {
		if p.LowerCode == "" || p.HigherCode == "" {
			return fmt.Errorf("patterns[%d]: lowerCode and higherCode are required", i)
		}
		if p.Threshold <= 0 {
			return fmt.Errorf("patterns[%d]: threshold must be positive", i)
		}
	}
	return nil
}

// ExpressionConfig configures an EXPRESSION rule: a CEL expression over claim
// attributes that triggers an alert when it evaluates to true.
type ExpressionConfig struct {
	Expression string `json:"expression"`
	Confidence int    `json:"confidence,omitempty"` // 0-100, defaults to 50
}

func (c *ExpressionConfig) Validate() error {
	if c.Expression == "" {
		return fmt.Errorf("expression is required")
	}
	if c.Confidence < 0 || c.Confidence > 100 {
		return fmt.Errorf("confidence must be between 0 and 100")
	}
	return nil
}

// ParseConfig decodes a rule's configuration payload into its typed variant.
// Unrecognized rule types return nil, nil: they are no-ops, not violations,
// so rule configuration stays forward-compatible with newer evaluators.
func ParseConfig(rule *domain.FraudRule) (RuleConfig, error) {
	var cfg RuleConfig
	switch rule.Type {
	case domain.RuleTypeFrequency:
		cfg = &FrequencyConfig{}
	case domain.RuleTypeCompatibility:
		cfg = &CompatibilityConfig{}
	case domain.RuleTypeUpcoding:
		cfg = &UpcodingConfig{}
	case domain.RuleTypeExpression:
		cfg = &ExpressionConfig{}
	default:
		return nil, nil
	}

	data, err := json.Marshal(rule.Configuration)
	if err != nil {
		return nil, &domain.MalformedRuleConfigError{RuleID: rule.ID, Type: rule.Type, Reason: err.Error()}
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, &domain.MalformedRuleConfigError{RuleID: rule.ID, Type: rule.Type, Reason: err.Error()}
	}
	if err := cfg.Validate(); err != nil {
		return nil, &domain.MalformedRuleConfigError{RuleID: rule.ID, Type: rule.Type, Reason: err.Error()}
	}

	return cfg, nil
}
