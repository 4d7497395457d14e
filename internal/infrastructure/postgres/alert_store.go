package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/bibbank/risk-orchestrator/internal/domain/model"
	"github.com/bibbank/risk-orchestrator/internal/domain/port"
	"github.com/bibbank/risk-orchestrator/internal/domain/valueobject"
	"github.com/bibbank/risk-orchestrator/pkg/events"
	pgpkg "github.com/bibbank/risk-orchestrator/pkg/postgres"
)

// insertAlertSQL writes the alert and its outbox entries in one statement.
// The outbox rows are selected from the inserted alert, so a conflict writes
// neither.
const insertAlertSQL = `
	WITH inserted AS (
		INSERT INTO risk_alerts (
			id, correlation_id, subject_id,
			score, tier, recommendation, confidence, reasons, degraded,
			status, decided_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (correlation_id) DO NOTHING
		RETURNING correlation_id
	), outbox AS (
		INSERT INTO risk_alert_outbox (id, correlation_id, event_type, aggregate_type, payload, created_at)
		SELECT e.id::uuid, inserted.correlation_id, e.event_type, e.aggregate_type, e.payload::jsonb, e.created_at
		FROM inserted
		CROSS JOIN unnest($13::text[], $14::text[], $15::text[], $16::text[], $17::timestamptz[])
			AS e(id, event_type, aggregate_type, payload, created_at)
	)
	SELECT count(*) FROM inserted
`

const fetchUnpublishedSQL = `
	SELECT id::text, correlation_id, event_type, aggregate_type, payload, created_at
	FROM risk_alert_outbox
	WHERE published_at IS NULL
	ORDER BY created_at, id
	LIMIT $1
`

const markPublishedSQL = `
	UPDATE risk_alert_outbox
	SET published_at = NOW()
	WHERE id = ANY($1::text[]::uuid[]) AND published_at IS NULL
`

const selectAlertSQL = `
	SELECT id, correlation_id, subject_id,
		score, tier, recommendation, confidence, reasons, degraded,
		status, decided_at, created_at
	FROM risk_alerts
	WHERE correlation_id = $1
`

// AlertStore implements port.AlertStore using PostgreSQL. Uniqueness per
// correlation id is enforced by the table's unique constraint.
type AlertStore struct {
	db pgpkg.Querier
}

var _ port.AlertStore = (*AlertStore)(nil)

// NewAlertStore creates a PostgreSQL-backed alert store.
func NewAlertStore(db pgpkg.Querier) *AlertStore {
	return &AlertStore{db: db}
}

// InsertIfAbsent inserts the alert with its outbox entries and reports false
// when a row for the same correlation id already exists.
func (s *AlertStore) InsertIfAbsent(ctx context.Context, alert *model.Alert) (bool, error) {
	entries, err := events.NewOutboxEntries(alert.Events())
	if err != nil {
		return false, fmt.Errorf("failed to build outbox entries: %w", err)
	}
	ids := make([]string, len(entries))
	types := make([]string, len(entries))
	aggregates := make([]string, len(entries))
	payloads := make([]string, len(entries))
	occurred := make([]time.Time, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
		types[i] = e.EventType
		aggregates[i] = e.AggregateType
		payloads[i] = string(e.Payload)
		occurred[i] = e.CreatedAt
	}

	d := alert.Decision()
	var inserted int64
	err = s.db.QueryRow(ctx, insertAlertSQL,
		alert.ID(),
		alert.CorrelationID(),
		alert.SubjectID(),
		d.Score(),
		d.Tier().String(),
		d.Recommendation().String(),
		d.Confidence(),
		d.Reasons(),
		d.Degraded(),
		alert.Status().String(),
		d.ProducedAt(),
		alert.CreatedAt(),
		ids,
		types,
		aggregates,
		payloads,
		occurred,
	).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("failed to insert alert: %w", err)
	}
	return inserted == 1, nil
}

// FetchUnpublished returns up to limit outbox entries, oldest first.
func (s *AlertStore) FetchUnpublished(ctx context.Context, limit int) ([]events.OutboxEntry, error) {
	rows, err := s.db.Query(ctx, fetchUnpublishedSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox: %w", err)
	}
	defer rows.Close()

	var entries []events.OutboxEntry
	for rows.Next() {
		var e events.OutboxEntry
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &e.AggregateType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox entry: %w", err)
		}
		e.CreatedAt = e.CreatedAt.UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read outbox: %w", err)
	}
	return entries, nil
}

// MarkPublished stamps published_at on the given outbox entries.
func (s *AlertStore) MarkPublished(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := s.db.Exec(ctx, markPublishedSQL, ids); err != nil {
		return fmt.Errorf("failed to mark outbox entries published: %w", err)
	}
	return nil
}

// FindByCorrelationID loads the alert for correlationID.
func (s *AlertStore) FindByCorrelationID(ctx context.Context, correlationID string) (*model.Alert, error) {
	var (
		id         uuid.UUID
		corrID     string
		subjectID  string
		score      int
		tierStr    string
		recStr     string
		confidence decimal.Decimal
		reasons    []string
		degraded   bool
		statusStr  string
		decidedAt  time.Time
		createdAt  time.Time
	)

	err := s.db.QueryRow(ctx, selectAlertSQL, correlationID).Scan(
		&id, &corrID, &subjectID,
		&score, &tierStr, &recStr, &confidence, &reasons, &degraded,
		&statusStr, &decidedAt, &createdAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, port.ErrAlertNotFound
		}
		return nil, fmt.Errorf("failed to scan alert: %w", err)
	}

	tier, err := valueobject.RiskTierFromString(tierStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse tier: %w", err)
	}
	rec, err := valueobject.RecommendationFromString(recStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse recommendation: %w", err)
	}
	status, err := valueobject.AlertStatusFromString(statusStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse status: %w", err)
	}

	decision := model.NewRiskDecision(model.DecisionParams{
		CorrelationID:  corrID,
		Score:          score,
		Tier:           tier,
		Recommendation: rec,
		Confidence:     confidence,
		Reasons:        reasons,
		Degraded:       degraded,
		ProducedAt:     decidedAt,
	})

	return model.ReconstructAlert(id, subjectID, decision, status, createdAt.UTC()), nil
}
