package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/risk-orchestrator/internal/domain/model"
	"github.com/bibbank/risk-orchestrator/internal/domain/valueobject"
)

func TestCompileReasonRules_Errors(t *testing.T) {
	tests := []struct {
		name string
		rule ReasonRule
	}{
		{"syntax error", ReasonRule{Name: "bad", Expression: "score >", Reason: "x"}},
		{"not boolean", ReasonRule{Name: "int", Expression: "score + 1", Reason: "x"}},
		{"unknown variable", ReasonRule{Name: "unknown", Expression: "velocity > 3", Reason: "x"}},
		{"missing reason", ReasonRule{Name: "empty", Expression: "score > 1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileReasonRules([]ReasonRule{tt.rule})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.rule.Name)
		})
	}
}

func TestReasonRules_Evaluate(t *testing.T) {
	rules, err := CompileReasonRules([]ReasonRule{
		{Name: "missing-key", Expression: `signals["channel"] == "web"`, Reason: "web channel"},
		{Name: "high", Expression: "score >= 700", Reason: "score above review line"},
		{Name: "no-amount", Expression: "!has_amount", Reason: "amount not supplied"},
	})
	require.NoError(t, err)

	p := validParams()
	req := model.NewRiskRequest(p)

	reasons := rules.Evaluate(710, valueobject.RiskTierHigh, req)

	// The missing map key is an evaluation error and counts as no match.
	assert.Equal(t, []string{"score above review line"}, reasons)
}

func TestReasonRules_NilIsEmpty(t *testing.T) {
	var rules *ReasonRules

	assert.Zero(t, rules.Len())
	assert.Nil(t, rules.Evaluate(900, valueobject.RiskTierCritical, model.NewRiskRequest(validParams())))
}
