package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/risk-orchestrator/internal/domain/event"
	pkgkafka "github.com/bibbank/risk-orchestrator/pkg/kafka"
)

type mockProducer struct {
	topic    string
	messages []pkgkafka.Message
	err      error
}

func (m *mockProducer) Publish(_ context.Context, topic string, messages ...pkgkafka.Message) error {
	m.topic = topic
	m.messages = append(m.messages, messages...)
	return m.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func alertCreated() event.AlertCreated {
	return event.NewAlertCreated(event.AlertCreatedParams{
		AlertID:        uuid.New(),
		CorrelationID:  "corr-k",
		SubjectID:      "cust-k",
		Score:          910,
		Tier:           "CRITICAL",
		Recommendation: "BLOCK",
		Confidence:     "0.95",
		Reasons:        []string{"risk score 910 classified as CRITICAL"},
		DecidedAt:      time.Now(),
		CreatedAt:      time.Now(),
	})
}

func TestAlertPublisher_Publish(t *testing.T) {
	producer := &mockProducer{}
	pub := NewAlertPublisher(producer, testLogger())
	evt := alertCreated()

	require.NoError(t, pub.Publish(context.Background(), "risk.alerts", evt))

	assert.Equal(t, "risk.alerts", producer.topic)
	require.Len(t, producer.messages, 1)
	msg := producer.messages[0]
	assert.Equal(t, "corr-k", string(msg.Key))
	assert.Equal(t, event.EventTypeAlertCreated, msg.Headers["event_type"])
	assert.Equal(t, evt.EventID(), msg.Headers["event_id"])

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "corr-k", decoded["correlation_id"])
	assert.Equal(t, "CRITICAL", decoded["tier"])
}

func TestAlertPublisher_Publish_Error(t *testing.T) {
	producer := &mockProducer{err: errors.New("leader not available")}

	err := NewAlertPublisher(producer, testLogger()).Publish(context.Background(), "risk.alerts", alertCreated())

	assert.ErrorContains(t, err, "risk.alerts")
	assert.ErrorContains(t, err, "leader not available")
}
