package service

import "github.com/bibbank/risk-orchestrator/internal/domain/valueobject"

// recommendationPolicy is the single place tier→action is decided.
var recommendationPolicy = map[valueobject.RiskTier]valueobject.Recommendation{
	valueobject.RiskTierLow:      valueobject.RecommendationApprove,
	valueobject.RiskTierMedium:   valueobject.RecommendationMonitor,
	valueobject.RiskTierHigh:     valueobject.RecommendationReview,
	valueobject.RiskTierCritical: valueobject.RecommendationBlock,
}

// Recommend maps a tier to the recommended action. An unset tier yields REVIEW.
func Recommend(tier valueobject.RiskTier) valueobject.Recommendation {
	if r, ok := recommendationPolicy[tier]; ok {
		return r
	}
	return valueobject.RecommendationReview
}
