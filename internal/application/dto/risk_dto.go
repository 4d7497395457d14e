package dto

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bibbank/risk-orchestrator/internal/domain/model"
)

// EvaluateRiskRequest is the input DTO for the EvaluateRisk use case.
// Amount is a decimal string so no precision is lost in transit.
type EvaluateRiskRequest struct {
	OccurredAt    time.Time         `json:"occurred_at"`
	Context       map[string]string `json:"context,omitempty"`
	Amount        *string           `json:"amount,omitempty"`
	SubjectID     string            `json:"subject_id"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Currency      string            `json:"currency"`
}

// ToModel builds the domain request. An amount that is not a decimal number
// is flagged on the request so validation reports it after subject_id.
func (r EvaluateRiskRequest) ToModel() model.RiskRequest {
	var (
		amount    decimal.NullDecimal
		malformed bool
	)
	if r.Amount != nil {
		d, err := decimal.NewFromString(strings.TrimSpace(*r.Amount))
		if err != nil {
			malformed = true
		} else {
			amount = decimal.NewNullDecimal(d)
		}
	}

	return model.NewRiskRequest(model.RiskRequestParams{
		SubjectID:       r.SubjectID,
		CorrelationID:   r.CorrelationID,
		Amount:          amount,
		AmountMalformed: malformed,
		Currency:        r.Currency,
		OccurredAt:      r.OccurredAt,
		Context:         r.Context,
	})
}

// RiskDecisionResponse is the output DTO for a decision.
type RiskDecisionResponse struct {
	ProducedAt     time.Time `json:"produced_at"`
	CorrelationID  string    `json:"correlation_id"`
	Tier           string    `json:"tier"`
	Recommendation string    `json:"recommendation"`
	Confidence     string    `json:"confidence"`
	Reasons        []string  `json:"reasons"`
	Score          int       `json:"score"`
	Degraded       bool      `json:"degraded"`
}

// FromDecision maps a domain decision to the response DTO.
func FromDecision(d model.RiskDecision) RiskDecisionResponse {
	return RiskDecisionResponse{
		CorrelationID:  d.CorrelationID(),
		Score:          d.Score(),
		Tier:           d.Tier().String(),
		Recommendation: d.Recommendation().String(),
		Confidence:     d.Confidence().StringFixed(2),
		Reasons:        d.Reasons(),
		Degraded:       d.Degraded(),
		ProducedAt:     d.ProducedAt(),
	}
}

// GetAlertRequest is the input DTO for retrieving an alert.
type GetAlertRequest struct {
	CorrelationID string `json:"correlation_id"`
}

// AlertResponse is the output DTO for a persisted alert.
type AlertResponse struct {
	CreatedAt     time.Time            `json:"created_at"`
	CorrelationID string               `json:"correlation_id"`
	SubjectID     string               `json:"subject_id"`
	Status        string               `json:"status"`
	Decision      RiskDecisionResponse `json:"decision"`
	AlertID       uuid.UUID            `json:"alert_id"`
}

// FromAlert maps a domain alert to the response DTO.
func FromAlert(a *model.Alert) AlertResponse {
	return AlertResponse{
		AlertID:       a.ID(),
		CorrelationID: a.CorrelationID(),
		SubjectID:     a.SubjectID(),
		Status:        a.Status().String(),
		Decision:      FromDecision(a.Decision()),
		CreatedAt:     a.CreatedAt(),
	}
}
