package model

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bibbank/risk-orchestrator/internal/domain/valueobject"
)

// Score bounds. 0 means no risk, 1000 means certain fraud.
const (
	MinScore = 0
	MaxScore = 1000
)

// DecisionParams carries the fields of a RiskDecision.
type DecisionParams struct {
	ProducedAt     time.Time
	Tier           valueobject.RiskTier
	Recommendation valueobject.Recommendation
	Confidence     decimal.Decimal
	CorrelationID  string
	Reasons        []string
	Score          int
	Degraded       bool
}

// RiskDecision is the immutable outcome of an evaluation. It has no identity
// beyond its correlation id.
type RiskDecision struct {
	producedAt     time.Time
	tier           valueobject.RiskTier
	recommendation valueobject.Recommendation
	confidence     decimal.Decimal
	correlationID  string
	reasons        []string
	score          int
	degraded       bool
}

// NewRiskDecision builds a decision. Reasons are copied.
func NewRiskDecision(p DecisionParams) RiskDecision {
	return RiskDecision{
		correlationID:  p.CorrelationID,
		score:          p.Score,
		tier:           p.Tier,
		recommendation: p.Recommendation,
		confidence:     p.Confidence,
		reasons:        slices.Clone(p.Reasons),
		degraded:       p.Degraded,
		producedAt:     p.ProducedAt.UTC(),
	}
}

// --- Accessors ---

func (d RiskDecision) CorrelationID() string                      { return d.correlationID }
func (d RiskDecision) Score() int                                 { return d.score }
func (d RiskDecision) Tier() valueobject.RiskTier                 { return d.tier }
func (d RiskDecision) Recommendation() valueobject.Recommendation { return d.recommendation }
func (d RiskDecision) Confidence() decimal.Decimal                { return d.confidence }
func (d RiskDecision) Degraded() bool                             { return d.degraded }
func (d RiskDecision) ProducedAt() time.Time                      { return d.producedAt }

// Reasons returns a copy of the ordered justification, most significant first.
func (d RiskDecision) Reasons() []string {
	return slices.Clone(d.reasons)
}

// IsZero reports whether d is the zero decision.
func (d RiskDecision) IsZero() bool {
	return d.correlationID == "" && d.tier.IsZero()
}
