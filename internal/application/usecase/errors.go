package usecase

import (
	"fmt"

	"github.com/bibbank/risk-orchestrator/internal/domain/service"
)

// RejectionError is returned by Evaluate when the request fails validation.
// No decision is produced for a rejected request.
type RejectionError struct {
	Validation *service.ValidationError
}

func (e *RejectionError) Error() string {
	return "request rejected: " + e.Validation.Error()
}

func (e *RejectionError) Unwrap() error { return e.Validation }

// Field returns the first field that failed validation.
func (e *RejectionError) Field() string { return e.Validation.Field }

// Alert side-effect stages.
const (
	StagePersist = "persist"
	StagePublish = "publish"
	StageOutbox  = "outbox"
)

// AlertSideEffectError reports a failed alert persistence or publication. It
// is logged and counted by the pipeline and never reaches the caller of
// Evaluate.
type AlertSideEffectError struct {
	Err           error
	Stage         string
	CorrelationID string
}

func (e *AlertSideEffectError) Error() string {
	if e.CorrelationID == "" {
		return fmt.Sprintf("alert %s failed: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("alert %s failed for %s: %v", e.Stage, e.CorrelationID, e.Err)
}

func (e *AlertSideEffectError) Unwrap() error { return e.Err }
