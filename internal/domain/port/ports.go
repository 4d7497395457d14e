package port

import (
	"context"
	"errors"

	"github.com/bibbank/risk-orchestrator/internal/domain/model"
	"github.com/bibbank/risk-orchestrator/pkg/events"
)

var (
	// ErrTransport marks a connection-level failure (refused, reset, unreachable)
	// on the scoring call. Only these are retried.
	ErrTransport = errors.New("scoring transport failure")

	// ErrScorerRejected marks a well-formed error response from the scorer.
	ErrScorerRejected = errors.New("scorer rejected request")

	// ErrMalformedResponse marks a scorer reply that carries no usable score.
	ErrMalformedResponse = errors.New("malformed scorer response")

	// ErrAlertNotFound is returned when no alert exists for a correlation id.
	ErrAlertNotFound = errors.New("alert not found")
)

// Scorer produces a raw risk score for a request. The context deadline is the
// hard limit for the whole call.
type Scorer interface {
	Score(ctx context.Context, req model.RiskRequest) (int, error)
}

// ScoringModel is the network leg to the external scoring service. Adapters
// wrap connection failures with ErrTransport and error responses with
// ErrScorerRejected, and must abort the call when ctx is done.
type ScoringModel interface {
	Scorer
	// Name identifies the model endpoint in logs and metrics.
	Name() string
}

// AlertStore persists alerts keyed uniquely by correlation id, together with
// an outbox of the events each alert raised.
type AlertStore interface {
	AlertOutbox

	// InsertIfAbsent stores the alert unless one already exists for its
	// correlation id. The alert's pending events enter the outbox atomically
	// with the alert. created is false on conflict, which is not an error.
	InsertIfAbsent(ctx context.Context, alert *model.Alert) (created bool, err error)

	// FindByCorrelationID returns ErrAlertNotFound when absent.
	FindByCorrelationID(ctx context.Context, correlationID string) (*model.Alert, error)
}

// AlertOutbox holds alert events the message bus has not yet accepted.
type AlertOutbox interface {
	// FetchUnpublished returns up to limit entries, oldest first.
	FetchUnpublished(ctx context.Context, limit int) ([]events.OutboxEntry, error)

	// MarkPublished records that the bus accepted the entries with ids.
	// Unknown ids are ignored.
	MarkPublished(ctx context.Context, ids []string) error
}

// AlertPublisher delivers alert events to the message bus.
type AlertPublisher interface {
	Publish(ctx context.Context, topic string, event events.DomainEvent) error
}
