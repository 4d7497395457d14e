package model

import (
	"maps"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Well-known context keys. Any other keys are passed through untouched.
const (
	ContextDeviceID         = "device_id"
	ContextNetworkAddress   = "ip_address"
	ContextMerchantID       = "merchant_id"
	ContextMerchantCategory = "merchant_category"
)

// RiskRequestParams carries the raw inputs for NewRiskRequest.
type RiskRequestParams struct {
	OccurredAt    time.Time
	Context       map[string]string
	SubjectID     string
	CorrelationID string
	Currency      string
	Amount        decimal.NullDecimal

	// AmountMalformed marks an amount that was supplied but could not be
	// parsed. The validator reports it in its usual field order.
	AmountMalformed bool
}

// RiskRequest identifies the event being scored. It is immutable once built;
// structural checks are the validator's job, not the constructor's.
type RiskRequest struct {
	occurredAt    time.Time
	context       map[string]string
	subjectID     string
	correlationID string
	currency      string
	amount        decimal.NullDecimal
	badAmount     bool
}

// NewRiskRequest builds a RiskRequest, generating a correlation id when the
// caller did not supply one. The context map is copied.
func NewRiskRequest(p RiskRequestParams) RiskRequest {
	correlationID := p.CorrelationID
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	return RiskRequest{
		subjectID:     p.SubjectID,
		correlationID: correlationID,
		amount:        p.Amount,
		badAmount:     p.AmountMalformed,
		currency:      p.Currency,
		occurredAt:    p.OccurredAt,
		context:       maps.Clone(p.Context),
	}
}

// --- Accessors ---

func (r RiskRequest) SubjectID() string     { return r.subjectID }
func (r RiskRequest) CorrelationID() string { return r.correlationID }
func (r RiskRequest) Currency() string      { return r.currency }
func (r RiskRequest) OccurredAt() time.Time { return r.occurredAt }

// Amount returns the amount and whether one was supplied.
func (r RiskRequest) Amount() (decimal.Decimal, bool) {
	return r.amount.Decimal, r.amount.Valid
}

// AmountMalformed reports whether the caller sent an amount that is not a
// decimal number.
func (r RiskRequest) AmountMalformed() bool { return r.badAmount }

// Context returns a copy of the extra signals.
func (r RiskRequest) Context() map[string]string {
	if r.context == nil {
		return map[string]string{}
	}
	return maps.Clone(r.context)
}

// ContextValue returns a single non-empty signal.
func (r RiskRequest) ContextValue(key string) (string, bool) {
	v, ok := r.context[key]
	return v, ok && v != ""
}
