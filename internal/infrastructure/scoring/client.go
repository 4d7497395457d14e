// Package scoring calls the external risk scoring model. Client wraps any
// port.ScoringModel with the retry, bulkhead and circuit-breaker behaviour the
// orchestrator relies on; the model adapters carry the wire protocol.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/semaphore"

	"github.com/bibbank/risk-orchestrator/internal/domain/model"
	"github.com/bibbank/risk-orchestrator/internal/domain/port"
	"github.com/bibbank/risk-orchestrator/internal/domain/service"
	"github.com/bibbank/risk-orchestrator/internal/infrastructure/metrics"
	"github.com/bibbank/risk-orchestrator/pkg/circuitbreaker"
	"github.com/bibbank/risk-orchestrator/pkg/observability"
	"github.com/bibbank/risk-orchestrator/pkg/retry"
)

// maxAttempts is the original call plus exactly one transport retry.
const maxAttempts = 2

var (
	errBulkheadFull = errors.New("scoring bulkhead saturated")
	errModelPanic   = errors.New("scoring model panicked")
)

// ClientConfig tunes the scoring client.
type ClientConfig struct {
	// MaxConcurrent caps outbound calls holding a bulkhead permit.
	MaxConcurrent int64
	// RetryDelay is the pause before the single transport retry.
	RetryDelay time.Duration
}

// Client implements port.Scorer on top of a ScoringModel.
type Client struct {
	model    port.ScoringModel
	bulkhead *semaphore.Weighted
	breaker  *circuitbreaker.Breaker
	cfg      ClientConfig
	logger   *slog.Logger
}

var _ port.Scorer = (*Client)(nil)

// NewClient creates a scoring client. breaker may be nil to disable circuit
// breaking.
func NewClient(m port.ScoringModel, cfg ClientConfig, breaker *circuitbreaker.Breaker, logger *slog.Logger) *Client {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	return &Client{
		model:    m,
		bulkhead: semaphore.NewWeighted(cfg.MaxConcurrent),
		breaker:  breaker,
		cfg:      cfg,
		logger:   logger,
	}
}

// Score returns a score in [0,1000] or a *service.ScoringError. The deadline is
// taken from ctx; no retry is started once it has passed.
func (c *Client) Score(ctx context.Context, req model.RiskRequest) (int, error) {
	ctx, span := observability.StartSpan(ctx, "risk.score",
		observability.CorrelationID(req.CorrelationID()),
		attribute.String("risk.model", c.model.Name()),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.ScoringDuration.WithLabelValues(c.model.Name()).Observe(time.Since(start).Seconds())
	}()

	var (
		score   int
		attempt int
	)
	err := retry.Do(ctx, maxAttempts, c.cfg.RetryDelay, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			metrics.ScoringRetriesTotal.WithLabelValues(c.model.Name()).Inc()
			c.logger.Debug("retrying scoring call after transport failure",
				"correlation_id", req.CorrelationID(),
			)
		}
		s, err := c.callOnce(ctx, req)
		if err != nil {
			if errors.Is(err, port.ErrTransport) && ctx.Err() == nil {
				return err
			}
			return retry.Permanent(err)
		}
		score = s
		return nil
	})
	if err == nil && (score < model.MinScore || score > model.MaxScore) {
		err = &service.ScoringError{
			Kind: service.ScoringInvalidResponse,
			Err:  fmt.Errorf("score %d outside [%d,%d]", score, model.MinScore, model.MaxScore),
		}
	}
	if err != nil {
		serr := c.toScoringError(ctx, err)
		metrics.ScoringCallsTotal.WithLabelValues(c.model.Name(), serr.Kind.String()).Inc()
		span.RecordError(serr)
		span.SetStatus(codes.Error, serr.Kind.String())
		c.logger.Warn("scoring failed",
			"correlation_id", req.CorrelationID(),
			"kind", serr.Kind.String(),
			"attempts", attempt,
			"error", serr.Err,
		)
		return 0, serr
	}

	metrics.ScoringCallsTotal.WithLabelValues(c.model.Name(), "ok").Inc()
	span.SetAttributes(attribute.Int("risk.score", score))
	return score, nil
}

type callResult struct {
	score int
	err   error
}

// callOnce makes one bulkheaded call. The permit is released by the goroutine
// running the model, so an abandoned call keeps its permit until it returns.
func (c *Client) callOnce(ctx context.Context, req model.RiskRequest) (int, error) {
	if c.breaker != nil && !c.breaker.Allow() {
		return 0, circuitbreaker.ErrOpen
	}
	if !c.bulkhead.TryAcquire(1) {
		if c.breaker != nil {
			c.breaker.Release()
		}
		return 0, errBulkheadFull
	}

	inFlight := metrics.ScoringInFlight.WithLabelValues(c.model.Name())
	inFlight.Inc()

	done := make(chan callResult, 1)
	go func() {
		r := c.invoke(ctx, req)
		inFlight.Dec()
		c.bulkhead.Release(1)
		done <- r
	}()

	select {
	case <-ctx.Done():
		if c.breaker != nil {
			c.breaker.Release()
		}
		return 0, ctx.Err()
	case r := <-done:
		c.record(r.err)
		return r.score, r.err
	}
}

func (c *Client) invoke(ctx context.Context, req model.RiskRequest) (r callResult) {
	defer func() {
		if p := recover(); p != nil {
			r = callResult{err: fmt.Errorf("%w: %v", errModelPanic, p)}
		}
	}()
	r.score, r.err = c.model.Score(ctx, req)
	return r
}

// record feeds the breaker. Only transport failures count against the
// dependency; a well-formed rejection proves it is reachable.
func (c *Client) record(err error) {
	if c.breaker == nil {
		return
	}
	switch {
	case err == nil:
		c.breaker.RecordSuccess()
	case errors.Is(err, port.ErrTransport):
		c.breaker.RecordFailure()
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		c.breaker.Release()
	default:
		c.breaker.RecordSuccess()
	}
}

func (c *Client) toScoringError(ctx context.Context, err error) *service.ScoringError {
	var serr *service.ScoringError
	if errors.As(err, &serr) {
		return serr
	}

	kind := service.ScoringUnavailable
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		ctx.Err() != nil:
		kind = service.ScoringDeadlineExceeded
	case errors.Is(err, port.ErrMalformedResponse):
		kind = service.ScoringInvalidResponse
	}
	return &service.ScoringError{Kind: kind, Err: err}
}
