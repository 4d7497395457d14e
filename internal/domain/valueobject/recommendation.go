package valueobject

import "fmt"

// Recommendation is the action suggested to the caller for a decision.
type Recommendation struct {
	value string
}

var (
	RecommendationApprove   = Recommendation{value: "APPROVE"}
	RecommendationMonitor   = Recommendation{value: "MONITOR"}
	RecommendationChallenge = Recommendation{value: "CHALLENGE"}
	RecommendationReview    = Recommendation{value: "REVIEW"}
	RecommendationBlock     = Recommendation{value: "BLOCK"}
)

// RecommendationFromString reconstructs a Recommendation from its string representation.
func RecommendationFromString(s string) (Recommendation, error) {
	switch s {
	case "APPROVE":
		return RecommendationApprove, nil
	case "MONITOR":
		return RecommendationMonitor, nil
	case "CHALLENGE":
		return RecommendationChallenge, nil
	case "REVIEW":
		return RecommendationReview, nil
	case "BLOCK":
		return RecommendationBlock, nil
	default:
		return Recommendation{}, fmt.Errorf("invalid recommendation: %q", s)
	}
}

func (r Recommendation) String() string {
	return r.value
}

// IsZero returns true if the Recommendation has not been set.
func (r Recommendation) IsZero() bool {
	return r.value == ""
}

// Equal checks equality with another Recommendation.
func (r Recommendation) Equal(other Recommendation) bool {
	return r.value == other.value
}
