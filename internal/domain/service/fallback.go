package service

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bibbank/risk-orchestrator/internal/domain/model"
	"github.com/bibbank/risk-orchestrator/internal/domain/valueobject"
)

var fallbackConfidence = decimal.RequireFromString("0.50")

// FallbackPolicy substitutes a conservative MEDIUM/REVIEW decision when the
// scoring path fails, so nothing is silently approved or blocked.
type FallbackPolicy struct {
	now   func() time.Time
	score int
}

// NewFallbackPolicy pins degraded decisions to the top of the MEDIUM range
// so the score still classifies as MEDIUM.
func NewFallbackPolicy(classifier *RiskClassifier, now func() time.Time) *FallbackPolicy {
	if now == nil {
		now = time.Now
	}
	return &FallbackPolicy{now: now, score: classifier.UpperBound(valueobject.RiskTierMedium)}
}

// Fallback builds the degraded decision for req. cause is normally a *ScoringError.
func (f *FallbackPolicy) Fallback(req model.RiskRequest, cause error) model.RiskDecision {
	return model.NewRiskDecision(model.DecisionParams{
		CorrelationID:  req.CorrelationID(),
		Score:          f.score,
		Tier:           valueobject.RiskTierMedium,
		Recommendation: valueobject.RecommendationReview,
		Confidence:     fallbackConfidence,
		Reasons: []string{
			fmt.Sprintf("primary scoring unavailable (%s)", ScoringErrorKindOf(cause)),
			"conservative decision substituted pending manual review",
		},
		Degraded:   true,
		ProducedAt: f.now(),
	})
}
