package service

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bibbank/risk-orchestrator/internal/domain/model"
)

// TierThresholds are the inclusive upper bounds of the LOW, MEDIUM and HIGH
// tiers. CRITICAL covers everything above HighMax up to MaxScore.
type TierThresholds struct {
	LowMax    int
	MediumMax int
	HighMax   int
}

// DefaultTierThresholds returns LOW [0,200], MEDIUM [201,500], HIGH [501,750],
// CRITICAL [751,1000].
func DefaultTierThresholds() TierThresholds {
	return TierThresholds{LowMax: 200, MediumMax: 500, HighMax: 750}
}

// Validate checks the bounds are strictly ascending inside the score range.
func (t TierThresholds) Validate() error {
	if t.LowMax < model.MinScore || !(t.LowMax < t.MediumMax && t.MediumMax < t.HighMax && t.HighMax < model.MaxScore) {
		return fmt.Errorf("tier thresholds must satisfy %d <= low < medium < high < %d, got %d/%d/%d",
			model.MinScore, model.MaxScore, t.LowMax, t.MediumMax, t.HighMax)
	}
	return nil
}

// RiskPolicy is the immutable set of knobs the decision stages read.
type RiskPolicy struct {
	Thresholds           TierThresholds
	LargeAmountThreshold decimal.Decimal
	MaxClockSkew         time.Duration
}

// DefaultRiskPolicy returns the production defaults.
func DefaultRiskPolicy() RiskPolicy {
	return RiskPolicy{
		Thresholds:           DefaultTierThresholds(),
		LargeAmountThreshold: decimal.NewFromInt(10000),
		MaxClockSkew:         5 * time.Minute,
	}
}

// Validate rejects policies the stages cannot honor.
func (p RiskPolicy) Validate() error {
	if err := p.Thresholds.Validate(); err != nil {
		return err
	}
	if !p.LargeAmountThreshold.IsPositive() {
		return fmt.Errorf("large amount threshold must be positive, got %s", p.LargeAmountThreshold)
	}
	if p.MaxClockSkew < 0 {
		return fmt.Errorf("max clock skew must not be negative, got %s", p.MaxClockSkew)
	}
	return nil
}
