package usecase_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bibbank/risk-orchestrator/internal/domain/model"
	"github.com/bibbank/risk-orchestrator/pkg/events"
)

// --- Mock implementations ---

type mockScorer struct {
	calls   atomic.Int32
	scoreFn func(ctx context.Context, req model.RiskRequest) (int, error)
}

func (m *mockScorer) Score(ctx context.Context, req model.RiskRequest) (int, error) {
	m.calls.Add(1)
	return m.scoreFn(ctx, req)
}

func fixedScore(score int) *mockScorer {
	return &mockScorer{scoreFn: func(context.Context, model.RiskRequest) (int, error) { return score, nil }}
}

type recordingSink struct {
	mu        sync.Mutex
	decisions []model.RiskDecision
}

func (s *recordingSink) OnDecision(_ model.RiskRequest, d model.RiskDecision) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions = append(s.decisions, d)
	return true
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.decisions)
}

type mockAlertStore struct {
	insertFn func(ctx context.Context, alert *model.Alert) (bool, error)
	fetchFn  func(ctx context.Context, limit int) ([]events.OutboxEntry, error)
	markFn   func(ctx context.Context, ids []string) error
}

func (m *mockAlertStore) InsertIfAbsent(ctx context.Context, alert *model.Alert) (bool, error) {
	return m.insertFn(ctx, alert)
}

func (m *mockAlertStore) FindByCorrelationID(context.Context, string) (*model.Alert, error) {
	return nil, nil
}

func (m *mockAlertStore) FetchUnpublished(ctx context.Context, limit int) ([]events.OutboxEntry, error) {
	if m.fetchFn == nil {
		return nil, nil
	}
	return m.fetchFn(ctx, limit)
}

func (m *mockAlertStore) MarkPublished(ctx context.Context, ids []string) error {
	if m.markFn == nil {
		return nil
	}
	return m.markFn(ctx, ids)
}

type mockPublisher struct {
	calls     atomic.Int32
	publishFn func(ctx context.Context, topic string, event events.DomainEvent) error
}

// flakyPublisher fails every call while down is set and records what it
// accepted otherwise.
type flakyPublisher struct {
	mu       sync.Mutex
	down     bool
	calls    int
	accepted []events.DomainEvent
}

func (f *flakyPublisher) Publish(_ context.Context, _ string, event events.DomainEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.down {
		return errors.New("broker down")
	}
	f.accepted = append(f.accepted, event)
	return nil
}

func (f *flakyPublisher) setDown(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.down = down
}

func (f *flakyPublisher) acceptedEvents() []events.DomainEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.accepted)
}

func (m *mockPublisher) Publish(ctx context.Context, topic string, event events.DomainEvent) error {
	m.calls.Add(1)
	return m.publishFn(ctx, topic, event)
}

type countingMetrics struct {
	mu          sync.Mutex
	decisions   int
	rejections  map[string]int
	created     int
	duplicates  int
	dropped     int
	sideEffects map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{rejections: map[string]int{}, sideEffects: map[string]int{}}
}

func (m *countingMetrics) DecisionProduced(model.RiskDecision, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions++
}

func (m *countingMetrics) RequestRejected(field string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejections[field]++
}

func (m *countingMetrics) AlertCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created++
}

func (m *countingMetrics) AlertDuplicate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.duplicates++
}

func (m *countingMetrics) AlertDropped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped++
}

func (m *countingMetrics) AlertSideEffectFailed(stage string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sideEffects[stage]++
}

func (m *countingMetrics) AlertQueueDepth(int) {}

type metricsSnapshot struct {
	rejections  map[string]int
	sideEffects map[string]int
	decisions   int
	created     int
	duplicates  int
	dropped     int
}

func (m *countingMetrics) snapshot() metricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return metricsSnapshot{
		decisions:   m.decisions,
		created:     m.created,
		duplicates:  m.duplicates,
		dropped:     m.dropped,
		rejections:  maps.Clone(m.rejections),
		sideEffects: maps.Clone(m.sideEffects),
	}
}

// --- Fixtures ---

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func testClock() time.Time { return testNow }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func riskRequest(correlationID string, amount int64) model.RiskRequest {
	return model.NewRiskRequest(model.RiskRequestParams{
		SubjectID:     "cust-7",
		CorrelationID: correlationID,
		Amount:        decimal.NewNullDecimal(decimal.NewFromInt(amount)),
		Currency:      "USD",
		OccurredAt:    testNow.Add(-time.Second),
	})
}
