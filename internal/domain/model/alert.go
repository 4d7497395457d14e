package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/risk-orchestrator/internal/domain/event"
	"github.com/bibbank/risk-orchestrator/internal/domain/valueobject"
	"github.com/bibbank/risk-orchestrator/pkg/events"
)

// Alert records a high-risk decision for case management. At most one alert
// exists per correlation id.
type Alert struct {
	events.EventCollector
	createdAt time.Time
	status    valueobject.AlertStatus
	subjectID string
	decision  RiskDecision
	id        uuid.UUID
}

// NewAlert creates an alert in state NEW for decision and records an
// AlertCreated event. Only alertable tiers or degraded decisions qualify.
func NewAlert(subjectID string, decision RiskDecision, now time.Time) (*Alert, error) {
	if decision.CorrelationID() == "" {
		return nil, fmt.Errorf("correlation ID is required")
	}
	if !decision.Tier().IsAlertable() && !decision.Degraded() {
		return nil, fmt.Errorf("tier %s does not qualify for an alert", decision.Tier())
	}

	a := &Alert{
		id:        uuid.New(),
		subjectID: subjectID,
		decision:  decision,
		status:    valueobject.AlertStatusNew,
		createdAt: now.UTC(),
	}

	a.Record(event.NewAlertCreated(event.AlertCreatedParams{
		AlertID:        a.id,
		CorrelationID:  decision.CorrelationID(),
		SubjectID:      subjectID,
		Score:          decision.Score(),
		Tier:           decision.Tier().String(),
		Recommendation: decision.Recommendation().String(),
		Confidence:     decision.Confidence().String(),
		Reasons:        decision.Reasons(),
		Degraded:       decision.Degraded(),
		DecidedAt:      decision.ProducedAt(),
		CreatedAt:      a.createdAt,
	}))

	return a, nil
}

// ReconstructAlert rebuilds an Alert from persisted data (no validation, no events).
func ReconstructAlert(
	id uuid.UUID,
	subjectID string,
	decision RiskDecision,
	status valueobject.AlertStatus,
	createdAt time.Time,
) *Alert {
	return &Alert{
		id:        id,
		subjectID: subjectID,
		decision:  decision,
		status:    status,
		createdAt: createdAt,
	}
}

// --- Accessors ---

func (a *Alert) ID() uuid.UUID                   { return a.id }
func (a *Alert) CorrelationID() string           { return a.decision.CorrelationID() }
func (a *Alert) SubjectID() string               { return a.subjectID }
func (a *Alert) Decision() RiskDecision          { return a.decision }
func (a *Alert) Status() valueobject.AlertStatus { return a.status }
func (a *Alert) CreatedAt() time.Time            { return a.createdAt }
