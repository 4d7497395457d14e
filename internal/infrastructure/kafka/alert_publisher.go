// Package kafka publishes alert events to Kafka through pkg/kafka.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/bibbank/risk-orchestrator/internal/domain/port"
	"github.com/bibbank/risk-orchestrator/pkg/events"
	pkgkafka "github.com/bibbank/risk-orchestrator/pkg/kafka"
)

// MessageProducer is satisfied by *pkgkafka.Producer.
type MessageProducer interface {
	Publish(ctx context.Context, topic string, messages ...pkgkafka.Message) error
}

// AlertPublisher implements port.AlertPublisher. Messages are keyed by the
// event's aggregate id (the correlation id) so one request's events share a
// partition.
type AlertPublisher struct {
	producer MessageProducer
	logger   *slog.Logger
}

var _ port.AlertPublisher = (*AlertPublisher)(nil)

// NewAlertPublisher creates a new Kafka alert publisher.
func NewAlertPublisher(producer MessageProducer, logger *slog.Logger) *AlertPublisher {
	return &AlertPublisher{producer: producer, logger: logger}
}

// Publish sends one domain event to topic.
func (p *AlertPublisher) Publish(ctx context.Context, topic string, event events.DomainEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event.EventType(), err)
	}

	p.logger.DebugContext(ctx, "publishing event",
		slog.String("event_type", event.EventType()),
		slog.String("topic", topic),
		slog.Int("payload_size", len(payload)),
	)

	msg := pkgkafka.Message{
		Key:     []byte(event.AggregateID()),
		Value:   payload,
		Headers: events.Headers(event),
	}
	if err := p.producer.Publish(ctx, topic, msg); err != nil {
		return fmt.Errorf("failed to publish %s to topic %s: %w", event.EventType(), topic, err)
	}
	return nil
}
