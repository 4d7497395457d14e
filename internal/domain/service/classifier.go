package service

import (
	"fmt"

	"github.com/bibbank/risk-orchestrator/internal/domain/valueobject"
)

// RiskClassifier maps a score onto a tier using closed, contiguous ranges.
type RiskClassifier struct {
	thresholds TierThresholds
}

// NewRiskClassifier validates thresholds and returns a classifier.
func NewRiskClassifier(thresholds TierThresholds) (*RiskClassifier, error) {
	if err := thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("risk classifier: %w", err)
	}
	return &RiskClassifier{thresholds: thresholds}, nil
}

// Classify returns the tier whose range contains score. Out-of-range scores
// clamp to LOW or CRITICAL.
func (c *RiskClassifier) Classify(score int) valueobject.RiskTier {
	switch {
	case score <= c.thresholds.LowMax:
		return valueobject.RiskTierLow
	case score <= c.thresholds.MediumMax:
		return valueobject.RiskTierMedium
	case score <= c.thresholds.HighMax:
		return valueobject.RiskTierHigh
	default:
		return valueobject.RiskTierCritical
	}
}

// UpperBound returns the highest score classified as tier.
func (c *RiskClassifier) UpperBound(tier valueobject.RiskTier) int {
	switch {
	case tier.Equal(valueobject.RiskTierLow):
		return c.thresholds.LowMax
	case tier.Equal(valueobject.RiskTierMedium):
		return c.thresholds.MediumMax
	case tier.Equal(valueobject.RiskTierHigh):
		return c.thresholds.HighMax
	default:
		return 1000
	}
}
