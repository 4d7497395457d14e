package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/risk-orchestrator/pkg/events"
)

const (
	// EventTypeAlertCreated is emitted once per correlation id when a
	// qualifying decision is first persisted as an alert.
	EventTypeAlertCreated = "risk.alert.created"

	aggregateTypeAlert = "Alert"
)

// AlertCreatedParams carries the fields of a new AlertCreated event.
type AlertCreatedParams struct {
	DecidedAt      time.Time
	CreatedAt      time.Time
	CorrelationID  string
	SubjectID      string
	Tier           string
	Recommendation string
	Confidence     string
	Reasons        []string
	Score          int
	AlertID        uuid.UUID
	Degraded       bool
}

// AlertCreated is published for case management and notification consumers.
// The aggregate id is the correlation id so consumers can deduplicate.
type AlertCreated struct {
	events.BaseEvent
	AlertID        uuid.UUID `json:"alert_id"`
	CorrelationID  string    `json:"correlation_id"`
	SubjectID      string    `json:"subject_id"`
	Score          int       `json:"score"`
	Tier           string    `json:"tier"`
	Recommendation string    `json:"recommendation"`
	Confidence     string    `json:"confidence"`
	Reasons        []string  `json:"reasons"`
	Degraded       bool      `json:"degraded"`
	DecidedAt      time.Time `json:"decided_at"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewAlertCreated builds the event.
func NewAlertCreated(p AlertCreatedParams) AlertCreated {
	return AlertCreated{
		BaseEvent:      events.NewBaseEvent(EventTypeAlertCreated, p.CorrelationID, aggregateTypeAlert, p.CreatedAt),
		AlertID:        p.AlertID,
		CorrelationID:  p.CorrelationID,
		SubjectID:      p.SubjectID,
		Score:          p.Score,
		Tier:           p.Tier,
		Recommendation: p.Recommendation,
		Confidence:     p.Confidence,
		Reasons:        p.Reasons,
		Degraded:       p.Degraded,
		DecidedAt:      p.DecidedAt,
		CreatedAt:      p.CreatedAt,
	}
}
