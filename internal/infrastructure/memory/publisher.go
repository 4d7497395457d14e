package memory

import (
	"context"
	"log/slog"
	"sync"

	"github.com/bibbank/risk-orchestrator/internal/domain/port"
	"github.com/bibbank/risk-orchestrator/pkg/events"
)

// Published is one event accepted by Publisher.
type Published struct {
	Event events.DomainEvent
	Topic string
}

// Publisher records events instead of sending them to a broker, and logs each
// one when a logger is set.
type Publisher struct {
	logger    *slog.Logger
	mu        sync.Mutex
	published []Published
}

var _ port.AlertPublisher = (*Publisher)(nil)

// NewPublisher creates a Publisher. logger may be nil.
func NewPublisher(logger *slog.Logger) *Publisher {
	return &Publisher{logger: logger}
}

func (p *Publisher) Publish(ctx context.Context, topic string, event events.DomainEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	p.published = append(p.published, Published{Topic: topic, Event: event})
	p.mu.Unlock()

	if p.logger != nil {
		p.logger.Info("event published",
			"topic", topic,
			"event_type", event.EventType(),
			"aggregate_id", event.AggregateID(),
		)
	}
	return nil
}

// Published returns a copy of everything published so far.
func (p *Publisher) Published() []Published {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Published, len(p.published))
	copy(out, p.published)
	return out
}
