// Package metrics provides Prometheus and OpenTelemetry instrumentation for
// the risk orchestrator.
package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/bibbank/risk-orchestrator/internal/domain/model"
)

const namespace = "risk"

var (
	// DecisionsTotal counts decisions returned to callers.
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Decisions produced by tier, recommendation and degraded flag.",
		},
		[]string{"tier", "recommendation", "degraded"},
	)

	// RejectionsTotal counts requests rejected by validation.
	RejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejections_total",
			Help:      "Requests rejected by validation, by first failing field.",
		},
		[]string{"field"},
	)

	// ScoringCallsTotal counts scoring client outcomes.
	ScoringCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "calls_total",
			Help:      "Scoring calls by model and outcome.",
		},
		[]string{"model", "outcome"},
	)

	// ScoringRetriesTotal counts transport retries.
	ScoringRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "retries_total",
			Help:      "Scoring transport retries by model.",
		},
		[]string{"model"},
	)

	// ScoringInFlight tracks outbound scoring calls holding a bulkhead permit.
	ScoringInFlight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "in_flight",
			Help:      "Outbound scoring calls currently holding a bulkhead permit.",
		},
		[]string{"model"},
	)

	// ScoringDuration observes end-to-end scoring client latency.
	ScoringDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "duration_seconds",
			Help:      "Scoring client latency including the retry.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"model"},
	)

	// AlertsTotal counts alert pipeline results.
	AlertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "total",
			Help:      "Alert pipeline results: created, duplicate, dropped.",
		},
		[]string{"result"},
	)

	// AlertSideEffectFailuresTotal counts persistence and publication failures.
	AlertSideEffectFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "side_effect_failures_total",
			Help:      "Alert side-effect failures by stage.",
		},
		[]string{"stage"},
	)

	// AlertQueueDepth tracks alerts waiting for a worker.
	AlertQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "queue_depth",
			Help:      "Alerts queued and not yet picked up by a worker.",
		},
	)

	// HTTPRequestsTotal counts HTTP requests by method, route and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, route pattern and status code.",
		},
		[]string{"method", "route", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		DecisionsTotal,
		RejectionsTotal,
		ScoringCallsTotal,
		ScoringRetriesTotal,
		ScoringInFlight,
		ScoringDuration,
		AlertsTotal,
		AlertSideEffectFailuresTotal,
		AlertQueueDepth,
		HTTPRequestsTotal,
	)
}

// Recorder adapts the package collectors to the use case metrics port and
// records evaluate latency on the global OpenTelemetry meter.
type Recorder struct {
	evaluateDuration otelmetric.Float64Histogram
}

// NewRecorder creates a Recorder. Call after the meter provider is installed.
func NewRecorder() (*Recorder, error) {
	hist, err := otel.Meter("github.com/bibbank/risk-orchestrator").Float64Histogram(
		"risk.evaluate.duration",
		otelmetric.WithUnit("s"),
		otelmetric.WithDescription("Wall time from request entry to decision."),
	)
	if err != nil {
		return nil, err
	}
	return &Recorder{evaluateDuration: hist}, nil
}

func (r *Recorder) DecisionProduced(d model.RiskDecision, elapsed time.Duration) {
	degraded := strconv.FormatBool(d.Degraded())
	DecisionsTotal.WithLabelValues(d.Tier().String(), d.Recommendation().String(), degraded).Inc()
	r.evaluateDuration.Record(context.Background(), elapsed.Seconds(),
		otelmetric.WithAttributes(
			attribute.String("tier", d.Tier().String()),
			attribute.Bool("degraded", d.Degraded()),
		))
}

func (r *Recorder) RequestRejected(field string) {
	RejectionsTotal.WithLabelValues(field).Inc()
}

func (r *Recorder) AlertCreated()   { AlertsTotal.WithLabelValues("created").Inc() }
func (r *Recorder) AlertDuplicate() { AlertsTotal.WithLabelValues("duplicate").Inc() }
func (r *Recorder) AlertDropped()   { AlertsTotal.WithLabelValues("dropped").Inc() }

func (r *Recorder) AlertSideEffectFailed(stage string) {
	AlertSideEffectFailuresTotal.WithLabelValues(stage).Inc()
}

func (r *Recorder) AlertQueueDepth(n int) {
	AlertQueueDepth.Set(float64(n))
}
