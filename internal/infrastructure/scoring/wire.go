package scoring

import (
	"time"

	"github.com/bibbank/risk-orchestrator/internal/domain/model"
)

// ScoreRequest is the logical payload sent to the scoring service.
type ScoreRequest struct {
	OccurredAt    time.Time         `json:"occurred_at"`
	Context       map[string]string `json:"context,omitempty"`
	SubjectID     string            `json:"subject_id"`
	CorrelationID string            `json:"correlation_id"`
	Amount        string            `json:"amount,omitempty"`
	Currency      string            `json:"currency"`
}

// ScoreResponse is the scoring service reply. Score is a pointer so a missing
// field is distinguishable from zero.
type ScoreResponse struct {
	Score        *int   `json:"score"`
	ModelVersion string `json:"model_version,omitempty"`
}

// NewScoreRequest copies every request field, context included, verbatim.
func NewScoreRequest(req model.RiskRequest) ScoreRequest {
	out := ScoreRequest{
		SubjectID:     req.SubjectID(),
		CorrelationID: req.CorrelationID(),
		Currency:      req.Currency(),
		OccurredAt:    req.OccurredAt().UTC(),
		Context:       req.Context(),
	}
	if amount, ok := req.Amount(); ok {
		out.Amount = amount.String()
	}
	return out
}
