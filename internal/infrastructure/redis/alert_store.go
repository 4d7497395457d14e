// Package redis provides a Redis-backed alert store for deployments that
// keep alerts in a shared cache instead of PostgreSQL.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/bibbank/risk-orchestrator/internal/domain/model"
	"github.com/bibbank/risk-orchestrator/internal/domain/port"
	"github.com/bibbank/risk-orchestrator/internal/domain/valueobject"
	"github.com/bibbank/risk-orchestrator/pkg/events"
)

const (
	keyPrefix = "risk:alert:"
	outboxKey = "risk:alert-outbox"
)

// insertScript sets the alert key only if absent and, when it did, adds the
// outbox entries passed as id/document pairs after the TTL argument.
var insertScript = goredis.NewScript(`
local ok
local ttl = tonumber(ARGV[2])
if ttl > 0 then
	ok = redis.call('SET', KEYS[1], ARGV[1], 'NX', 'PX', ttl)
else
	ok = redis.call('SET', KEYS[1], ARGV[1], 'NX')
end
if not ok then
	return 0
end
for i = 3, #ARGV, 2 do
	redis.call('HSET', KEYS[2], ARGV[i], ARGV[i + 1])
end
return 1
`)

// NewClient parses a redis:// URL and verifies connectivity.
func NewClient(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return client, nil
}

// alertRecord is the JSON document stored per correlation id.
type alertRecord struct {
	DecidedAt      time.Time       `json:"decided_at"`
	CreatedAt      time.Time       `json:"created_at"`
	Confidence     decimal.Decimal `json:"confidence"`
	CorrelationID  string          `json:"correlation_id"`
	SubjectID      string          `json:"subject_id"`
	Tier           string          `json:"tier"`
	Recommendation string          `json:"recommendation"`
	Status         string          `json:"status"`
	Reasons        []string        `json:"reasons"`
	Score          int             `json:"score"`
	ID             uuid.UUID       `json:"id"`
	Degraded       bool            `json:"degraded"`
}

func toRecord(a *model.Alert) alertRecord {
	d := a.Decision()
	return alertRecord{
		ID:             a.ID(),
		CorrelationID:  a.CorrelationID(),
		SubjectID:      a.SubjectID(),
		Score:          d.Score(),
		Tier:           d.Tier().String(),
		Recommendation: d.Recommendation().String(),
		Confidence:     d.Confidence(),
		Reasons:        d.Reasons(),
		Degraded:       d.Degraded(),
		Status:         a.Status().String(),
		DecidedAt:      d.ProducedAt(),
		CreatedAt:      a.CreatedAt(),
	}
}

func (r alertRecord) toModel() (*model.Alert, error) {
	tier, err := valueobject.RiskTierFromString(r.Tier)
	if err != nil {
		return nil, err
	}
	rec, err := valueobject.RecommendationFromString(r.Recommendation)
	if err != nil {
		return nil, err
	}
	status, err := valueobject.AlertStatusFromString(r.Status)
	if err != nil {
		return nil, err
	}

	decision := model.NewRiskDecision(model.DecisionParams{
		CorrelationID:  r.CorrelationID,
		Score:          r.Score,
		Tier:           tier,
		Recommendation: rec,
		Confidence:     r.Confidence,
		Reasons:        r.Reasons,
		Degraded:       r.Degraded,
		ProducedAt:     r.DecidedAt,
	})
	return model.ReconstructAlert(r.ID, r.SubjectID, decision, status, r.CreatedAt), nil
}

// outboxRecord is the JSON document stored per outbox entry. Published
// entries are deleted rather than stamped.
type outboxRecord struct {
	CreatedAt     time.Time       `json:"created_at"`
	ID            string          `json:"id"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
}

// AlertStore implements port.AlertStore with SET NX, so the first writer for
// a correlation id wins. Outbox entries live in one hash keyed by event id.
type AlertStore struct {
	client goredis.Cmdable
	ttl    time.Duration
}

var _ port.AlertStore = (*AlertStore)(nil)

// NewAlertStore creates a store whose alerts expire after ttl. With ttl 0 they
// never expire; any positive ttl lets a correlation id alert again once its
// key is gone.
func NewAlertStore(client goredis.Cmdable, ttl time.Duration) *AlertStore {
	return &AlertStore{client: client, ttl: ttl}
}

func (s *AlertStore) InsertIfAbsent(ctx context.Context, alert *model.Alert) (bool, error) {
	data, err := json.Marshal(toRecord(alert))
	if err != nil {
		return false, fmt.Errorf("failed to marshal alert: %w", err)
	}
	entries, err := events.NewOutboxEntries(alert.Events())
	if err != nil {
		return false, fmt.Errorf("failed to build outbox entries: %w", err)
	}

	args := []any{data, s.ttl.Milliseconds()}
	for _, e := range entries {
		doc, err := json.Marshal(outboxRecord{
			ID:            e.ID,
			AggregateID:   e.AggregateID,
			AggregateType: e.AggregateType,
			EventType:     e.EventType,
			Payload:       e.Payload,
			CreatedAt:     e.CreatedAt,
		})
		if err != nil {
			return false, fmt.Errorf("failed to marshal outbox entry: %w", err)
		}
		args = append(args, e.ID, doc)
	}

	created, err := insertScript.Run(ctx, s.client, []string{keyPrefix + alert.CorrelationID(), outboxKey}, args...).Int()
	if err != nil {
		return false, fmt.Errorf("failed to store alert: %w", err)
	}
	return created == 1, nil
}

// FetchUnpublished returns up to limit outbox entries, oldest first.
func (s *AlertStore) FetchUnpublished(ctx context.Context, limit int) ([]events.OutboxEntry, error) {
	docs, err := s.client.HVals(ctx, outboxKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load outbox: %w", err)
	}

	entries := make([]events.OutboxEntry, 0, len(docs))
	for _, doc := range docs {
		var rec outboxRecord
		if err := json.Unmarshal([]byte(doc), &rec); err != nil {
			return nil, fmt.Errorf("failed to decode outbox entry: %w", err)
		}
		entries = append(entries, events.OutboxEntry{
			ID:            rec.ID,
			AggregateID:   rec.AggregateID,
			AggregateType: rec.AggregateType,
			EventType:     rec.EventType,
			Payload:       rec.Payload,
			CreatedAt:     rec.CreatedAt,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.Before(entries[j].CreatedAt)
		}
		return entries[i].ID < entries[j].ID
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// MarkPublished removes the entries from the outbox.
func (s *AlertStore) MarkPublished(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.client.HDel(ctx, outboxKey, ids...).Err(); err != nil {
		return fmt.Errorf("failed to mark outbox entries published: %w", err)
	}
	return nil
}

func (s *AlertStore) FindByCorrelationID(ctx context.Context, correlationID string) (*model.Alert, error) {
	data, err := s.client.Get(ctx, keyPrefix+correlationID).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, port.ErrAlertNotFound
		}
		return nil, fmt.Errorf("failed to load alert: %w", err)
	}

	var rec alertRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode alert: %w", err)
	}
	alert, err := rec.toModel()
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild alert: %w", err)
	}
	return alert, nil
}
