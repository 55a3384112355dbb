package fraud

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/openclaims/harrier/internal/domain"
)

// defaultExpressionConfidence is used when a rule does not set one. Expression
// rules encode ad hoc analyst heuristics, so they default to mid-range.
const defaultExpressionConfidence = 50

// evaluateExpression compiles the rule's CEL expression (cached per rule
// version) and fires an alert when it evaluates to true against the claim.
func (e *Engine) evaluateExpression(claim *domain.Claim, rule *domain.FraudRule, cfg *ExpressionConfig) (*domain.ClaimFraudAlert, error) {
	prg, err := e.program(rule, cfg)
	if err != nil {
		return nil, err
	}

	out, _, err := prg.Eval(expressionActivation(claim))
	if err != nil {
		return nil, fmt.Errorf("rule %s: expression evaluation: %w", rule.ID, err)
	}

	triggered, ok := out.(types.Bool)
	if !ok {
		return nil, fmt.Errorf("rule %s: expression returned %T, want bool", rule.ID, out)
	}
	if !bool(triggered) {
		return nil, nil
	}

	confidence := cfg.Confidence
	if confidence == 0 {
		confidence = defaultExpressionConfidence
	}

	explanation := fmt.Sprintf("claim matched expression rule %q", rule.Name)
	return newAlert(claim, rule, confidence, explanation, map[string]any{
		"expression": cfg.Expression,
	}), nil
}

// program returns the compiled CEL program for the rule, compiling and caching
// it when absent or stale. The cache key is the rule ID; UpdatedAt detects
// configuration changes so edited rules recompile.
func (e *Engine) program(rule *domain.FraudRule, cfg *ExpressionConfig) (cel.Program, error) {
	e.mu.RLock()
	cached, ok := e.programs[rule.ID]
	e.mu.RUnlock()
	if ok && cached.updatedAt.Equal(rule.UpdatedAt) {
		return cached.prg, nil
	}

	ast, issues := e.env.Compile(cfg.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, &domain.MalformedRuleConfigError{RuleID: rule.ID, Type: rule.Type, Reason: issues.Err().Error()}
	}
	if ast.OutputType() != cel.BoolType {
		return nil, &domain.MalformedRuleConfigError{RuleID: rule.ID, Type: rule.Type,
			Reason: fmt.Sprintf("expression must return bool, got %s", ast.OutputType())}
	}

	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, &domain.MalformedRuleConfigError{RuleID: rule.ID, Type: rule.Type, Reason: err.Error()}
	}

	e.mu.Lock()
	e.programs[rule.ID] = compiledProgram{updatedAt: rule.UpdatedAt, prg: prg}
	e.mu.Unlock()

	return prg, nil
}

func expressionActivation(claim *domain.Claim) map[string]any {
	codes := make([]string, 0, len(claim.Items))
	for i := range claim.Items {
		codes = append(codes, claim.Items[i].ServiceCode)
	}

	diagnoses := claim.DiagnosisCodes
	if diagnoses == nil {
		diagnoses = []string{}
	}

	return map[string]any{
		"total_amount":       claim.TotalAmount.InexactFloat64(),
		"item_count":         len(claim.Items),
		"service_codes":      codes,
		"diagnosis_codes":    diagnoses,
		"is_out_of_network":  claim.IsOutOfNetwork,
		"is_emergency":       claim.IsEmergency,
		"provider_specialty": claim.ProviderSpecialty,
		"provider_id":        claim.ProviderID,
		"member_id":          claim.MemberID,
	}
}
