package scoring

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/bibbank/risk-orchestrator/internal/domain/model"
	"github.com/bibbank/risk-orchestrator/internal/domain/port"
)

var (
	highValueThreshold     = decimal.NewFromInt(10000)
	veryHighValueThreshold = decimal.NewFromInt(50000)
	unusualCurrencies      = map[string]bool{"XMR": true, "BTC": true, "ETH": true}
	highRiskCountries      = map[string]bool{"KP": true, "IR": true, "SY": true, "CU": true}
)

// RuleModel is an in-process heuristic scorer for local development and for
// running without a model service. It never fails.
type RuleModel struct{}

var _ port.ScoringModel = RuleModel{}

func (RuleModel) Name() string { return "rules" }

// Score starts at 50 and adds points per matching rule, capped at 1000.
func (RuleModel) Score(ctx context.Context, req model.RiskRequest) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	score := 50
	if amount, ok := req.Amount(); ok {
		if amount.GreaterThan(highValueThreshold) {
			score += 250
		}
		if amount.GreaterThan(veryHighValueThreshold) {
			score += 150
		}
	}

	signals := req.Context()
	if dst := signals["destination_country"]; dst != "" {
		if src := signals["source_country"]; src != "" && src != dst {
			score += 150
		}
		if highRiskCountries[dst] {
			score += 250
		}
	}
	if signals["account_age"] == "new" {
		score += 100
	}
	if signals["rapid_transactions"] == "true" {
		score += 150
	}
	if unusualCurrencies[req.Currency()] {
		score += 100
	}

	return min(score, model.MaxScore), nil
}
