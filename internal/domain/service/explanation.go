package service

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/bibbank/risk-orchestrator/internal/domain/model"
	"github.com/bibbank/risk-orchestrator/internal/domain/valueobject"
	"github.com/bibbank/risk-orchestrator/pkg/money"
)

// ExplanationGenerator builds the ordered reasons attached to a decision.
// The order never depends on magnitudes: score statement, then amount,
// network address, device, merchant category, then configured rules.
type ExplanationGenerator struct {
	largeAmount decimal.Decimal
	rules       *ReasonRules
}

// NewExplanationGenerator creates a generator. rules may be nil.
func NewExplanationGenerator(largeAmount decimal.Decimal, rules *ReasonRules) *ExplanationGenerator {
	return &ExplanationGenerator{largeAmount: largeAmount, rules: rules}
}

// Explain returns at least one reason.
func (g *ExplanationGenerator) Explain(score int, tier valueobject.RiskTier, req model.RiskRequest) []string {
	reasons := []string{fmt.Sprintf("risk score %d classified as %s", score, tier)}

	if amount, ok := req.Amount(); ok && amount.GreaterThan(g.largeAmount) {
		reasons = append(reasons, fmt.Sprintf("amount %s exceeds large-transaction threshold %s",
			formatAmount(amount, req.Currency()), g.largeAmount.StringFixed(2)))
	}
	if addr, ok := req.ContextValue(model.ContextNetworkAddress); ok {
		reasons = append(reasons, fmt.Sprintf("network address signal present (%s)", addr))
	}
	if device, ok := req.ContextValue(model.ContextDeviceID); ok {
		reasons = append(reasons, fmt.Sprintf("device signal present (%s)", device))
	}
	if category, ok := req.ContextValue(model.ContextMerchantCategory); ok {
		reasons = append(reasons, fmt.Sprintf("merchant category %s on record", category))
	}

	return append(reasons, g.rules.Evaluate(score, tier, req)...)
}

func formatAmount(amount decimal.Decimal, currency string) string {
	c, err := money.ParseCurrency(currency)
	if err != nil {
		c = ""
	}
	return money.Format(amount, c)
}
