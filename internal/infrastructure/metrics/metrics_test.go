package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/risk-orchestrator/internal/domain/model"
	"github.com/bibbank/risk-orchestrator/internal/domain/valueobject"
)

func TestRecorder_DecisionProduced(t *testing.T) {
	r, err := NewRecorder()
	require.NoError(t, err)

	d := model.NewRiskDecision(model.DecisionParams{
		CorrelationID:  "c-1",
		Score:          120,
		Tier:           valueobject.RiskTierLow,
		Recommendation: valueobject.RecommendationApprove,
		Confidence:     decimal.RequireFromString("0.95"),
		Reasons:        []string{"x"},
	})

	counter := DecisionsTotal.WithLabelValues("LOW", "APPROVE", "false")
	before := testutil.ToFloat64(counter)
	r.DecisionProduced(d, 12*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestRecorder_AlertCounters(t *testing.T) {
	r, err := NewRecorder()
	require.NoError(t, err)

	dropped := AlertsTotal.WithLabelValues("dropped")
	publish := AlertSideEffectFailuresTotal.WithLabelValues("publish")
	beforeDropped := testutil.ToFloat64(dropped)
	beforePublish := testutil.ToFloat64(publish)

	r.AlertDropped()
	r.AlertSideEffectFailed("publish")
	r.AlertQueueDepth(7)

	assert.Equal(t, beforeDropped+1, testutil.ToFloat64(dropped))
	assert.Equal(t, beforePublish+1, testutil.ToFloat64(publish))
	assert.Equal(t, float64(7), testutil.ToFloat64(AlertQueueDepth))
}

func TestScoringDuration_Buckets(t *testing.T) {
	ScoringDuration.DeleteLabelValues("bucket_test")
	obs := ScoringDuration.WithLabelValues("bucket_test")
	obs.Observe(0.02)
	obs.Observe(0.3)

	m := &dto.Metric{}
	require.NoError(t, obs.(prometheus.Metric).Write(m))

	h := m.GetHistogram()
	require.NotNil(t, h)
	assert.Equal(t, uint64(2), h.GetSampleCount())
	assert.InDelta(t, 0.32, h.GetSampleSum(), 1e-9)

	cumulative := make(map[float64]uint64, len(h.GetBucket()))
	for _, b := range h.GetBucket() {
		cumulative[b.GetUpperBound()] = b.GetCumulativeCount()
	}
	assert.Equal(t, uint64(0), cumulative[0.01])
	assert.Equal(t, uint64(1), cumulative[0.025])
	assert.Equal(t, uint64(2), cumulative[0.5])
}
