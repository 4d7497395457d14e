package usecase

import (
	"time"

	"github.com/bibbank/risk-orchestrator/internal/domain/model"
)

// Metrics receives the counters the use cases emit. The infrastructure
// metrics.Recorder implements it.
type Metrics interface {
	DecisionProduced(d model.RiskDecision, elapsed time.Duration)
	RequestRejected(field string)
	AlertCreated()
	AlertDuplicate()
	AlertDropped()
	AlertSideEffectFailed(stage string)
	AlertQueueDepth(n int)
}

// NoopMetrics discards everything.
type NoopMetrics struct{}

func (NoopMetrics) DecisionProduced(model.RiskDecision, time.Duration) {}
func (NoopMetrics) RequestRejected(string)                          {}
func (NoopMetrics) AlertCreated()                                   {}
func (NoopMetrics) AlertDuplicate()                                 {}
func (NoopMetrics) AlertDropped()                                   {}
func (NoopMetrics) AlertSideEffectFailed(string)                    {}
func (NoopMetrics) AlertQueueDepth(int)                             {}
