// Package memory holds in-process adapters for local runs and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/bibbank/risk-orchestrator/internal/domain/model"
	"github.com/bibbank/risk-orchestrator/internal/domain/port"
	"github.com/bibbank/risk-orchestrator/pkg/events"
)

// AlertStore keeps alerts in a map keyed by correlation id and their events
// in an insertion-ordered outbox.
type AlertStore struct {
	mu     sync.RWMutex
	alerts map[string]*model.Alert
	outbox []events.OutboxEntry
	now    func() time.Time
}

var _ port.AlertStore = (*AlertStore)(nil)

// NewAlertStore returns an empty store.
func NewAlertStore() *AlertStore {
	return &AlertStore{alerts: make(map[string]*model.Alert), now: time.Now}
}

func (s *AlertStore) InsertIfAbsent(ctx context.Context, alert *model.Alert) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	entries, err := events.NewOutboxEntries(alert.Events())
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.alerts[alert.CorrelationID()]; exists {
		return false, nil
	}
	s.alerts[alert.CorrelationID()] = model.ReconstructAlert(
		alert.ID(), alert.SubjectID(), alert.Decision(), alert.Status(), alert.CreatedAt(),
	)
	s.outbox = append(s.outbox, entries...)
	return true, nil
}

func (s *AlertStore) FindByCorrelationID(ctx context.Context, correlationID string) (*model.Alert, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.alerts[correlationID]
	if !ok {
		return nil, port.ErrAlertNotFound
	}
	return a, nil
}

func (s *AlertStore) FetchUnpublished(ctx context.Context, limit int) ([]events.OutboxEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []events.OutboxEntry
	for _, e := range s.outbox {
		if len(out) >= limit {
			break
		}
		if !e.Published() {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *AlertStore) MarkPublished(ctx context.Context, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	at := s.now().UTC()
	for i := range s.outbox {
		if _, ok := want[s.outbox[i].ID]; ok && !s.outbox[i].Published() {
			s.outbox[i].PublishedAt = &at
		}
	}
	return nil
}

// Len returns the number of stored alerts.
func (s *AlertStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.alerts)
}

// Pending returns the number of outbox entries not yet published.
func (s *AlertStore) Pending() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.outbox {
		if !e.Published() {
			n++
		}
	}
	return n
}
