package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/bibbank/risk-orchestrator/internal/application/dto"
	"github.com/bibbank/risk-orchestrator/internal/domain/model"
	"github.com/bibbank/risk-orchestrator/internal/domain/port"
	"github.com/bibbank/risk-orchestrator/internal/domain/service"
	"github.com/bibbank/risk-orchestrator/pkg/observability"
)

// AlertSink accepts decisions for asynchronous alerting. It must not block.
type AlertSink interface {
	OnDecision(req model.RiskRequest, decision model.RiskDecision) bool
}

// EvaluateRiskConfig holds the per-request knobs of the orchestrator.
type EvaluateRiskConfig struct {
	// Now is the clock for validation and decision timestamps. Defaults to time.Now.
	Now func() time.Time
	// Confidence defaults to service.HeuristicConfidence.
	Confidence service.ConfidenceEstimator
	// Budget is the end-to-end scoring deadline measured from request entry.
	Budget time.Duration
	// AlertOnDegraded also alerts on degraded decisions regardless of tier.
	AlertOnDegraded bool
}

// EvaluateRisk is the orchestrator use case: validate, score, classify,
// recommend, explain and hand qualifying decisions to the alert sink.
type EvaluateRisk struct {
	scorer     port.Scorer
	alerts     AlertSink
	metrics    Metrics
	logger     *slog.Logger
	validator  *service.RequestValidator
	classifier *service.RiskClassifier
	explainer  *service.ExplanationGenerator
	fallback   *service.FallbackPolicy
	confidence service.ConfidenceEstimator
	cfg        EvaluateRiskConfig
}

// NewEvaluateRisk wires the decision stages from an immutable policy.
func NewEvaluateRisk(
	policy service.RiskPolicy,
	rules *service.ReasonRules,
	scorer port.Scorer,
	alerts AlertSink,
	cfg EvaluateRiskConfig,
	metrics Metrics,
	logger *slog.Logger,
) (*EvaluateRisk, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid risk policy: %w", err)
	}
	if cfg.Budget <= 0 {
		return nil, fmt.Errorf("scoring budget must be positive, got %s", cfg.Budget)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Confidence == nil {
		cfg.Confidence = service.HeuristicConfidence
	}
	if metrics == nil {
		metrics = NoopMetrics{}
	}

	classifier, err := service.NewRiskClassifier(policy.Thresholds)
	if err != nil {
		return nil, err
	}

	return &EvaluateRisk{
		scorer:     scorer,
		alerts:     alerts,
		metrics:    metrics,
		logger:     logger,
		validator:  service.NewRequestValidator(policy.MaxClockSkew, cfg.Now),
		classifier: classifier,
		explainer:  service.NewExplanationGenerator(policy.LargeAmountThreshold, rules),
		fallback:   service.NewFallbackPolicy(classifier, cfg.Now),
		confidence: cfg.Confidence,
		cfg:        cfg,
	}, nil
}

// Execute evaluates a request DTO and maps the decision back to a DTO.
func (uc *EvaluateRisk) Execute(ctx context.Context, req dto.EvaluateRiskRequest) (dto.RiskDecisionResponse, error) {
	decision, err := uc.Evaluate(ctx, req.ToModel())
	if err != nil {
		return dto.RiskDecisionResponse{}, err
	}
	return dto.FromDecision(decision), nil
}

// Evaluate returns a decision for every valid request. Scoring failures of
// any kind produce the degraded fallback decision; the only error returned is
// *RejectionError.
func (uc *EvaluateRisk) Evaluate(ctx context.Context, req model.RiskRequest) (model.RiskDecision, error) {
	start := time.Now()
	deadline := start.Add(uc.cfg.Budget)

	ctx, span := observability.StartSpan(ctx, "risk.evaluate", observability.CorrelationID(req.CorrelationID()))
	defer span.End()

	validated, err := uc.validator.Validate(req)
	if err != nil {
		var verr *service.ValidationError
		if !errors.As(err, &verr) {
			verr = &service.ValidationError{Field: "request", Reason: err.Error()}
		}
		uc.metrics.RequestRejected(verr.Field)
		uc.logger.Info("risk request rejected",
			"correlation_id", req.CorrelationID(),
			"field", verr.Field,
			"reason", verr.Reason,
		)
		span.SetAttributes(attribute.String("risk.rejected_field", verr.Field))
		return model.RiskDecision{}, &RejectionError{Validation: verr}
	}
	req = validated

	scoreCtx, cancel := context.WithDeadline(ctx, deadline)
	score, err := uc.score(scoreCtx, req)
	cancel()

	var decision model.RiskDecision
	if err != nil {
		decision = uc.fallback.Fallback(req, err)
		uc.logger.Warn("scoring failed, using fallback decision",
			"correlation_id", req.CorrelationID(),
			"kind", service.ScoringErrorKindOf(err).String(),
			"error", err,
		)
	} else {
		decision = uc.decide(score, req)
	}

	if uc.shouldAlert(decision) && uc.alerts != nil {
		uc.alerts.OnDecision(req, decision)
	}

	uc.metrics.DecisionProduced(decision, time.Since(start))
	span.SetAttributes(
		observability.Tier(decision.Tier().String()),
		attribute.Int("risk.score", decision.Score()),
		attribute.Bool("risk.degraded", decision.Degraded()),
	)
	uc.logger.Debug("risk decision produced",
		"correlation_id", decision.CorrelationID(),
		"score", decision.Score(),
		"tier", decision.Tier().String(),
		"recommendation", decision.Recommendation().String(),
		"degraded", decision.Degraded(),
	)

	return decision, nil
}

func (uc *EvaluateRisk) decide(score int, req model.RiskRequest) model.RiskDecision {
	tier := uc.classifier.Classify(score)
	return model.NewRiskDecision(model.DecisionParams{
		CorrelationID:  req.CorrelationID(),
		Score:          score,
		Tier:           tier,
		Recommendation: service.Recommend(tier),
		Confidence:     uc.confidence(score),
		Reasons:        uc.explainer.Explain(score, tier, req),
		ProducedAt:     uc.cfg.Now(),
	})
}

// score calls the scorer and normalises anything it returns, panics included,
// into a *service.ScoringError.
func (uc *EvaluateRisk) score(ctx context.Context, req model.RiskRequest) (score int, err error) {
	defer func() {
		if r := recover(); r != nil {
			score = 0
			err = &service.ScoringError{Kind: service.ScoringUnavailable, Err: fmt.Errorf("scorer panic: %v", r)}
		}
	}()

	score, err = uc.scorer.Score(ctx, req)
	if err != nil {
		var serr *service.ScoringError
		if errors.As(err, &serr) {
			return 0, serr
		}
		kind := service.ScoringUnavailable
		if ctx.Err() != nil {
			kind = service.ScoringDeadlineExceeded
		}
		return 0, &service.ScoringError{Kind: kind, Err: err}
	}
	if score < model.MinScore || score > model.MaxScore {
		return 0, &service.ScoringError{
			Kind: service.ScoringInvalidResponse,
			Err:  fmt.Errorf("score %d outside [%d,%d]", score, model.MinScore, model.MaxScore),
		}
	}
	return score, nil
}

func (uc *EvaluateRisk) shouldAlert(d model.RiskDecision) bool {
	if d.Degraded() {
		return uc.cfg.AlertOnDegraded
	}
	return d.Tier().IsAlertable()
}
