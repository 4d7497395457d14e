package service

import (
	"strings"
	"time"

	"github.com/bibbank/risk-orchestrator/internal/domain/model"
	"github.com/bibbank/risk-orchestrator/pkg/money"
)

// Field names reported in ValidationError.
const (
	FieldSubjectID  = "subject_id"
	FieldAmount     = "amount"
	FieldCurrency   = "currency"
	FieldOccurredAt = "occurred_at"
)

// RequestValidator performs the structural checks on a RiskRequest. It stops
// at the first failing field.
type RequestValidator struct {
	now     func() time.Time
	maxSkew time.Duration
}

// NewRequestValidator creates a validator that allows occurredAt up to
// maxSkew ahead of now().
func NewRequestValidator(maxSkew time.Duration, now func() time.Time) *RequestValidator {
	if now == nil {
		now = time.Now
	}
	return &RequestValidator{now: now, maxSkew: maxSkew}
}

// Validate returns req unchanged when it passes, otherwise a *ValidationError.
func (v *RequestValidator) Validate(req model.RiskRequest) (model.RiskRequest, error) {
	if strings.TrimSpace(req.SubjectID()) == "" {
		return model.RiskRequest{}, &ValidationError{Field: FieldSubjectID, Reason: "must not be empty"}
	}

	if req.AmountMalformed() {
		return model.RiskRequest{}, &ValidationError{Field: FieldAmount, Reason: "must be a decimal number"}
	}
	if amount, ok := req.Amount(); ok && !amount.IsPositive() {
		return model.RiskRequest{}, &ValidationError{Field: FieldAmount, Reason: "must be greater than zero"}
	}

	if _, err := money.ParseCurrency(req.Currency()); err != nil {
		return model.RiskRequest{}, &ValidationError{Field: FieldCurrency, Reason: "must be exactly 3 uppercase letters"}
	}

	occurredAt := req.OccurredAt()
	if occurredAt.IsZero() {
		return model.RiskRequest{}, &ValidationError{Field: FieldOccurredAt, Reason: "is required"}
	}
	if occurredAt.After(v.now().Add(v.maxSkew)) {
		return model.RiskRequest{}, &ValidationError{Field: FieldOccurredAt, Reason: "is too far in the future"}
	}

	return req, nil
}
