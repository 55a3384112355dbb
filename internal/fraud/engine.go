// Package fraud evaluates administrator-configured detection rules against
// adjudicated claims, emitting review alerts with confidence scores.
package fraud

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/openclaims/harrier/internal/domain"
)

var tracer = otel.Tracer("harrier-fraud")

// HistoryProvider supplies the historical claim data the frequency and
// upcoding evaluators need.
type HistoryProvider interface {
	// ClaimsByMember returns the member's claims submitted at or after since.
	ClaimsByMember(ctx context.Context, memberID string, since time.Time) ([]*domain.Claim, error)

	// CodeUsageRatio returns how often the provider billed higherCode relative
	// to lowerCode since the given time: count(higher) / max(count(lower), 1).
	CodeUsageRatio(ctx context.Context, providerID, higherCode, lowerCode string, since time.Time) (float64, error)
}

// Engine evaluates fraud rules against claims. Each rule is evaluated in
// isolation: a rule that fails to parse or evaluate is logged and skipped,
// never blocking the remaining rules. Safe for concurrent use.
type Engine struct {
	history      HistoryProvider
	lookbackDays int
	env          *cel.Env

	mu       sync.RWMutex
	programs map[string]compiledProgram
}

type compiledProgram struct {
	updatedAt time.Time
	prg       cel.Program
}

// NewEngine creates a fraud rule engine. lookbackDays bounds the historical
// window for upcoding ratio computation; non-positive selects one year.
func NewEngine(history HistoryProvider, lookbackDays int) (*Engine, error) {
	if lookbackDays <= 0 {
		lookbackDays = 365
	}

	env, err := cel.NewEnv(
		cel.Variable("total_amount", cel.DoubleType),
		cel.Variable("item_count", cel.IntType),
		cel.Variable("service_codes", cel.ListType(cel.StringType)),
		cel.Variable("diagnosis_codes", cel.ListType(cel.StringType)),
		cel.Variable("is_out_of_network", cel.BoolType),
		cel.Variable("is_emergency", cel.BoolType),
		cel.Variable("provider_specialty", cel.StringType),
		cel.Variable("provider_id", cel.StringType),
		cel.Variable("member_id", cel.StringType),
	)
	if err != nil {
		return nil, err
	}

	return &Engine{
		history:      history,
		lookbackDays: lookbackDays,
		env:          env,
		programs:     make(map[string]compiledProgram),
	}, nil
}

// Evaluate runs every eligible rule against the claim and returns the alerts
// for the rules that triggered. Evaluation is read-only with respect to the
// claim and deterministic for a fixed claim, rule set, and claim history.
//
// INACTIVE rules are skipped. TESTING rules are evaluated and their alerts
// tagged so reviewers can tell shadow findings from live ones.
func (e *Engine) Evaluate(ctx context.Context, claim *domain.Claim, rules []*domain.FraudRule) ([]*domain.ClaimFraudAlert, error) {
	ctx, span := tracer.Start(ctx, "fraud.evaluate")
	defer span.End()
	span.SetAttributes(
		attribute.String("claim.id", claim.ID),
		attribute.Int("fraud.rules", len(rules)),
	)

	var alerts []*domain.ClaimFraudAlert
	for _, rule := range rules {
		if rule.Status == domain.RuleStatusInactive {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		alert, err := e.evaluateRule(ctx, claim, rule)
		if err != nil {
			slog.Warn("fraud rule evaluation failed",
				"rule_id", rule.ID,
				"rule_type", rule.Type,
				"claim_id", claim.ID,
				"error", err,
			)
			continue
		}
		if alert == nil {
			continue
		}

		if rule.Status == domain.RuleStatusTesting {
			if alert.AdditionalData == nil {
				alert.AdditionalData = make(map[string]any)
			}
			alert.AdditionalData["ruleStatus"] = string(domain.RuleStatusTesting)
		}
		alerts = append(alerts, alert)
	}

	span.SetAttributes(attribute.Int("fraud.alerts", len(alerts)))
	return alerts, nil
}

func (e *Engine) evaluateRule(ctx context.Context, claim *domain.Claim, rule *domain.FraudRule) (*domain.ClaimFraudAlert, error) {
	cfg, err := ParseConfig(rule)
	if err != nil {
		return nil, err
	}

	switch cfg := cfg.(type) {
	case *FrequencyConfig:
		return e.evaluateFrequency(ctx, claim, rule, cfg)
	case *CompatibilityConfig:
		return e.evaluateCompatibility(claim, rule, cfg)
	case *UpcodingConfig:
		return e.evaluateUpcoding(ctx, claim, rule, cfg)
	case *ExpressionConfig:
		return e.evaluateExpression(claim, rule, cfg)
	default:
		// Unknown rule type: a no-op, so older engines tolerate newer rules.
		slog.Debug("skipping rule with unknown type", "rule_id", rule.ID, "rule_type", rule.Type)
		return nil, nil
	}
}

// newAlert builds a NEW alert attributing the finding to the rule that fired.
func newAlert(claim *domain.Claim, rule *domain.FraudRule, confidence int, explanation string, data map[string]any) *domain.ClaimFraudAlert {
	return &domain.ClaimFraudAlert{
		ID:              uuid.New().String(),
		ClaimID:         claim.ID,
		RuleID:          rule.ID,
		Severity:        rule.Severity,
		Status:          domain.AlertStatusNew,
		Explanation:     explanation,
		ConfidenceScore: confidence,
		AdditionalData:  data,
		CreatedAt:       time.Now().UTC(),
	}
}

// confidenceScore clamps a raw score into the 0-100 alert range.
func confidenceScore(v float64) int {
	if v >= 100 {
		return 100
	}
	if v <= 0 {
		return 0
	}
	return int(v)
}
