package service

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/bibbank/risk-orchestrator/internal/domain/model"
	"github.com/bibbank/risk-orchestrator/internal/domain/valueobject"
)

// ReasonRule adds Reason to a decision's explanation when Expression, a CEL
// boolean over score, tier, amount, has_amount, currency and signals, holds.
type ReasonRule struct {
	Name       string `json:"name"`
	Expression string `json:"expression"`
	Reason     string `json:"reason"`
}

type compiledRule struct {
	program cel.Program
	rule    ReasonRule
}

// ReasonRules is a compiled, ordered rule set. Safe for concurrent use.
type ReasonRules struct {
	rules []compiledRule
}

const reasonRuleCostLimit = 100000

// CompileReasonRules type-checks every rule up front so a bad expression fails
// at startup rather than during evaluation.
func CompileReasonRules(rules []ReasonRule) (*ReasonRules, error) {
	env, err := cel.NewEnv(
		cel.Variable("score", cel.IntType),
		cel.Variable("tier", cel.StringType),
		cel.Variable("amount", cel.DoubleType),
		cel.Variable("has_amount", cel.BoolType),
		cel.Variable("currency", cel.StringType),
		cel.Variable("signals", cel.MapType(cel.StringType, cel.StringType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		if r.Reason == "" {
			return nil, fmt.Errorf("reason rule %q: reason is required", r.Name)
		}
		ast, issues := env.Compile(r.Expression)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("reason rule %q: compile error: %w", r.Name, issues.Err())
		}
		if !ast.OutputType().IsExactType(cel.BoolType) {
			return nil, fmt.Errorf("reason rule %q: expression must be boolean, got %s", r.Name, ast.OutputType())
		}
		prg, err := env.Program(ast, cel.CostLimit(reasonRuleCostLimit))
		if err != nil {
			return nil, fmt.Errorf("reason rule %q: program creation error: %w", r.Name, err)
		}
		compiled = append(compiled, compiledRule{program: prg, rule: r})
	}

	return &ReasonRules{rules: compiled}, nil
}

// Len returns the number of rules.
func (rs *ReasonRules) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.rules)
}

// Evaluate returns the reasons of matching rules in configuration order.
// Rules that fail to evaluate are treated as not matching.
func (rs *ReasonRules) Evaluate(score int, tier valueobject.RiskTier, req model.RiskRequest) []string {
	if rs.Len() == 0 {
		return nil
	}

	amount, hasAmount := req.Amount()
	vars := map[string]any{
		"score":      int64(score),
		"tier":       tier.String(),
		"amount":     amount.InexactFloat64(),
		"has_amount": hasAmount,
		"currency":   req.Currency(),
		"signals":    req.Context(),
	}

	var reasons []string
	for _, cr := range rs.rules {
		out, _, err := cr.program.Eval(vars)
		if err != nil {
			continue
		}
		if matched, ok := out.Value().(bool); ok && matched {
			reasons = append(reasons, cr.rule.Reason)
		}
	}
	return reasons
}
