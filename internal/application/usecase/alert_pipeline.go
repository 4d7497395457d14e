package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bibbank/risk-orchestrator/internal/domain/model"
	"github.com/bibbank/risk-orchestrator/internal/domain/port"
	"github.com/bibbank/risk-orchestrator/pkg/events"
	"github.com/bibbank/risk-orchestrator/pkg/retry"
)

// AlertPipelineConfig sizes the alert queue and bounds each job.
//
// The relay republishes outbox entries a job could not deliver. It skips
// entries younger than RelayGrace so it does not race the job that is still
// publishing them; RelayInterval 0 disables the background relay.
type AlertPipelineConfig struct {
	Topic           string
	QueueSize       int
	Workers         int
	JobTimeout      time.Duration
	PublishAttempts int
	RetryDelay      time.Duration
	RelayInterval   time.Duration
	RelayBatch      int
	RelayGrace      time.Duration
}

// DefaultAlertPipelineConfig returns the production defaults.
func DefaultAlertPipelineConfig() AlertPipelineConfig {
	return AlertPipelineConfig{
		Topic:           "risk.alerts",
		QueueSize:       1024,
		Workers:         4,
		JobTimeout:      2 * time.Second,
		PublishAttempts: 3,
		RetryDelay:      50 * time.Millisecond,
		RelayInterval:   5 * time.Second,
		RelayBatch:      100,
		RelayGrace:      2 * time.Second,
	}
}

type alertJob struct {
	req      model.RiskRequest
	decision model.RiskDecision
}

// AlertPipeline persists and publishes alerts off the request path. Intake is
// a bounded queue drained by a fixed pool of workers; a full queue drops the
// alert rather than blocking the caller. Events reach the bus at least once:
// they are stored in the outbox with the alert and relayed until accepted.
type AlertPipeline struct {
	store     port.AlertStore
	publisher port.AlertPublisher
	metrics   Metrics
	logger    *slog.Logger
	now       func() time.Time
	queue     chan alertJob
	stopRelay chan struct{}
	cfg       AlertPipelineConfig

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
	relayWG sync.WaitGroup
}

// NewAlertPipeline creates a pipeline. Call Start before enqueueing.
func NewAlertPipeline(
	store port.AlertStore,
	publisher port.AlertPublisher,
	cfg AlertPipelineConfig,
	metrics Metrics,
	logger *slog.Logger,
) *AlertPipeline {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.PublishAttempts <= 0 {
		cfg.PublishAttempts = 1
	}
	if cfg.RelayBatch <= 0 {
		cfg.RelayBatch = 100
	}
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &AlertPipeline{
		store:     store,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
		queue:     make(chan alertJob, cfg.QueueSize),
		stopRelay: make(chan struct{}),
		cfg:       cfg,
	}
}

// Start launches the workers. Jobs run on contexts derived from ctx without
// its cancellation; use Shutdown to stop.
func (p *AlertPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true

	base := context.WithoutCancel(ctx)
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker(base)
	}
	if p.cfg.RelayInterval > 0 {
		p.relayWG.Add(1)
		go p.relayLoop(base)
	}
	p.logger.Info("alert pipeline started",
		"workers", p.cfg.Workers,
		"queue_size", p.cfg.QueueSize,
		"relay_interval", p.cfg.RelayInterval,
	)
}

// OnDecision enqueues decision for alerting without blocking. It reports
// whether the job was accepted.
func (p *AlertPipeline) OnDecision(req model.RiskRequest, decision model.RiskDecision) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.drop(decision, "pipeline stopped")
		return false
	}

	select {
	case p.queue <- alertJob{req: req, decision: decision}:
		p.metrics.AlertQueueDepth(len(p.queue))
		return true
	default:
		p.drop(decision, "queue full")
		return false
	}
}

func (p *AlertPipeline) drop(decision model.RiskDecision, reason string) {
	p.metrics.AlertDropped()
	p.logger.Warn("alert dropped",
		"correlation_id", decision.CorrelationID(),
		"tier", decision.Tier().String(),
		"reason", reason,
	)
}

func (p *AlertPipeline) worker(ctx context.Context) {
	defer p.wg.Done()
	for job := range p.queue {
		p.metrics.AlertQueueDepth(len(p.queue))
		p.handle(ctx, job)
	}
}

func (p *AlertPipeline) handle(ctx context.Context, job alertJob) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.JobTimeout)
	defer cancel()

	err := p.Process(ctx, job.req, job.decision)
	if err == nil {
		return
	}

	var sideErr *AlertSideEffectError
	if errors.As(err, &sideErr) {
		p.metrics.AlertSideEffectFailed(sideErr.Stage)
		p.logger.Error("alert side effect failed",
			"correlation_id", sideErr.CorrelationID,
			"stage", sideErr.Stage,
			"error", sideErr.Err,
		)
		return
	}
	p.logger.Warn("alert skipped", "correlation_id", job.decision.CorrelationID(), "error", err)
}

// Process persists the alert for decision and, only if it was newly created,
// publishes its events. A duplicate correlation id is a silent no-op. Events
// that fail to publish stay in the outbox for RelayPending.
func (p *AlertPipeline) Process(ctx context.Context, req model.RiskRequest, decision model.RiskDecision) error {
	alert, err := model.NewAlert(req.SubjectID(), decision, p.now())
	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}

	created, err := p.store.InsertIfAbsent(ctx, alert)
	if err != nil {
		return &AlertSideEffectError{Stage: StagePersist, CorrelationID: alert.CorrelationID(), Err: err}
	}
	if !created {
		p.metrics.AlertDuplicate()
		p.logger.Debug("alert already exists", "correlation_id", alert.CorrelationID())
		return nil
	}
	p.metrics.AlertCreated()

	published, err := p.publishAll(ctx, alert.ClearEvents())
	if markErr := p.markPublished(ctx, published); markErr != nil && err == nil {
		return &AlertSideEffectError{Stage: StageOutbox, CorrelationID: alert.CorrelationID(), Err: markErr}
	}
	if err != nil {
		return &AlertSideEffectError{Stage: StagePublish, CorrelationID: alert.CorrelationID(), Err: err}
	}

	p.logger.Info("alert created",
		"alert_id", alert.ID().String(),
		"correlation_id", alert.CorrelationID(),
		"tier", decision.Tier().String(),
		"degraded", decision.Degraded(),
	)
	return nil
}

// publishAll publishes evts in order with bounded retries and returns the ids
// the bus accepted before the first failure.
func (p *AlertPipeline) publishAll(ctx context.Context, evts []events.DomainEvent) ([]string, error) {
	ids := make([]string, 0, len(evts))
	for _, evt := range evts {
		err := retry.Do(ctx, p.cfg.PublishAttempts, p.cfg.RetryDelay, func(ctx context.Context) error {
			return p.publisher.Publish(ctx, p.cfg.Topic, evt)
		})
		if err != nil {
			return ids, err
		}
		ids = append(ids, evt.EventID())
	}
	return ids, nil
}

func (p *AlertPipeline) markPublished(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return p.store.MarkPublished(ctx, ids)
}

// RelayPending publishes one batch of outbox entries older than RelayGrace
// and marks the accepted ones. It returns how many were published; on a
// publish failure the rest of the batch waits for the next pass.
func (p *AlertPipeline) RelayPending(ctx context.Context) (int, error) {
	entries, err := p.store.FetchUnpublished(ctx, p.cfg.RelayBatch)
	if err != nil {
		return 0, &AlertSideEffectError{Stage: StageOutbox, Err: err}
	}

	cutoff := p.now().Add(-p.cfg.RelayGrace)
	pending := make([]events.DomainEvent, 0, len(entries))
	for _, e := range entries {
		if p.cfg.RelayGrace > 0 && e.CreatedAt.After(cutoff) {
			break
		}
		pending = append(pending, e.Event())
	}

	published, pubErr := p.publishAll(ctx, pending)
	if err := p.markPublished(ctx, published); err != nil {
		return len(published), &AlertSideEffectError{Stage: StageOutbox, Err: err}
	}
	if len(published) > 0 {
		p.logger.Info("alert events relayed", "count", len(published))
	}
	if pubErr != nil {
		failed := pending[len(published)]
		return len(published), &AlertSideEffectError{Stage: StagePublish, CorrelationID: failed.AggregateID(), Err: pubErr}
	}
	return len(published), nil
}

func (p *AlertPipeline) relayLoop(ctx context.Context) {
	defer p.relayWG.Done()
	ticker := time.NewTicker(p.cfg.RelayInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopRelay:
			return
		case <-ticker.C:
			p.relayOnce(ctx)
		}
	}
}

func (p *AlertPipeline) relayOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.JobTimeout)
	defer cancel()

	if _, err := p.RelayPending(ctx); err != nil {
		var sideErr *AlertSideEffectError
		if errors.As(err, &sideErr) {
			p.metrics.AlertSideEffectFailed(sideErr.Stage)
		}
		p.logger.Warn("alert relay failed", "error", err)
	}
}

// Shutdown stops intake and the relay, then waits for queued alerts to drain
// or ctx to end. Events left unpublished stay in the outbox for the next run.
func (p *AlertPipeline) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
		close(p.stopRelay)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		p.relayWG.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("alert pipeline drain: %w", ctx.Err())
	}
}
