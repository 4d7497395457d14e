package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/risk-orchestrator/internal/application/dto"
	"github.com/bibbank/risk-orchestrator/internal/application/usecase"
	"github.com/bibbank/risk-orchestrator/internal/domain/model"
	"github.com/bibbank/risk-orchestrator/internal/domain/service"
	"github.com/bibbank/risk-orchestrator/internal/domain/valueobject"
	"github.com/bibbank/risk-orchestrator/internal/infrastructure/scoring"
)

const testBudget = 100 * time.Millisecond

func newEvaluateRisk(t *testing.T, scorer *mockScorer, sink usecase.AlertSink, alertOnDegraded bool) (*usecase.EvaluateRisk, *countingMetrics) {
	t.Helper()
	m := newCountingMetrics()
	uc, err := usecase.NewEvaluateRisk(
		service.DefaultRiskPolicy(),
		nil,
		scorer,
		sink,
		usecase.EvaluateRiskConfig{Now: testClock, Budget: testBudget, AlertOnDegraded: alertOnDegraded},
		m,
		testLogger(),
	)
	require.NoError(t, err)
	return uc, m
}

func TestEvaluateRisk_Scenarios(t *testing.T) {
	tests := []struct {
		name      string
		amount    int64
		score     int
		wantTier  valueobject.RiskTier
		wantRec   valueobject.Recommendation
		wantAlert bool
	}{
		{"low risk approved", 50, 120, valueobject.RiskTierLow, valueobject.RecommendationApprove, false},
		{"critical blocked", 15000, 820, valueobject.RiskTierCritical, valueobject.RecommendationBlock, true},
		{"lower medium boundary", 50, 201, valueobject.RiskTierMedium, valueobject.RecommendationMonitor, false},
		{"upper medium boundary", 50, 500, valueobject.RiskTierMedium, valueobject.RecommendationMonitor, false},
		{"lower high boundary", 50, 501, valueobject.RiskTierHigh, valueobject.RecommendationReview, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			uc, m := newEvaluateRisk(t, fixedScore(tt.score), sink, false)

			d, err := uc.Evaluate(context.Background(), riskRequest("corr-"+tt.name, tt.amount))

			require.NoError(t, err)
			assert.Equal(t, tt.score, d.Score())
			assert.Equal(t, tt.wantTier, d.Tier())
			assert.Equal(t, tt.wantRec, d.Recommendation())
			assert.False(t, d.Degraded())
			assert.NotEmpty(t, d.Reasons())
			assert.Equal(t, testNow, d.ProducedAt())
			assert.Equal(t, tt.wantAlert, sink.count() == 1)
			assert.Equal(t, 1, m.snapshot().decisions)
		})
	}
}

func TestEvaluateRisk_LargeAmountReason(t *testing.T) {
	uc, _ := newEvaluateRisk(t, fixedScore(820), &recordingSink{}, false)

	d, err := uc.Evaluate(context.Background(), riskRequest("corr-large", 15000))

	require.NoError(t, err)
	assert.Contains(t, d.Reasons(), "amount 15000.00 USD exceeds large-transaction threshold 10000.00")
}

func TestEvaluateRisk_TimeoutFallsBack(t *testing.T) {
	scorer := &mockScorer{scoreFn: func(ctx context.Context, _ model.RiskRequest) (int, error) {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(2 * testBudget):
			return 900, nil
		}
	}}
	sink := &recordingSink{}
	uc, _ := newEvaluateRisk(t, scorer, sink, false)

	start := time.Now()
	d, err := uc.Evaluate(context.Background(), riskRequest("corr-timeout", 50))
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Less(t, elapsed, testBudget+50*time.Millisecond)
	assert.Equal(t, valueobject.RiskTierMedium, d.Tier())
	assert.Equal(t, valueobject.RecommendationReview, d.Recommendation())
	assert.True(t, d.Degraded())
	assert.Equal(t, "primary scoring unavailable (deadline_exceeded)", d.Reasons()[0])
	assert.Zero(t, sink.count(), "degraded decisions do not alert")
}

func TestEvaluateRisk_ScorerFailures(t *testing.T) {
	tests := []struct {
		name     string
		scoreFn  func(ctx context.Context, req model.RiskRequest) (int, error)
		wantKind service.ScoringErrorKind
	}{
		{
			name: "typed error kept",
			scoreFn: func(context.Context, model.RiskRequest) (int, error) {
				return 0, &service.ScoringError{Kind: service.ScoringInvalidResponse}
			},
			wantKind: service.ScoringInvalidResponse,
		},
		{
			name:     "untyped error is unavailable",
			scoreFn:  func(context.Context, model.RiskRequest) (int, error) { return 0, errors.New("boom") },
			wantKind: service.ScoringUnavailable,
		},
		{
			name:     "out of range is invalid",
			scoreFn:  func(context.Context, model.RiskRequest) (int, error) { return 1500, nil },
			wantKind: service.ScoringInvalidResponse,
		},
		{
			name:     "panic is unavailable",
			scoreFn:  func(context.Context, model.RiskRequest) (int, error) { panic("scorer exploded") },
			wantKind: service.ScoringUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc, _ := newEvaluateRisk(t, &mockScorer{scoreFn: tt.scoreFn}, &recordingSink{}, false)

			d, err := uc.Evaluate(context.Background(), riskRequest("corr-fail", 50))

			require.NoError(t, err)
			assert.True(t, d.Degraded())
			assert.Equal(t, 500, d.Score())
			assert.Contains(t, d.Reasons()[0], tt.wantKind.String())
		})
	}
}

func TestEvaluateRisk_AlertOnDegraded(t *testing.T) {
	scorer := &mockScorer{scoreFn: func(context.Context, model.RiskRequest) (int, error) {
		return 0, &service.ScoringError{Kind: service.ScoringUnavailable}
	}}
	sink := &recordingSink{}
	uc, _ := newEvaluateRisk(t, scorer, sink, true)

	d, err := uc.Evaluate(context.Background(), riskRequest("corr-degraded", 50))

	require.NoError(t, err)
	assert.True(t, d.Degraded())
	assert.Equal(t, 1, sink.count())
}

func TestEvaluateRisk_Rejection(t *testing.T) {
	scorer := fixedScore(100)
	sink := &recordingSink{}
	uc, m := newEvaluateRisk(t, scorer, sink, false)

	req := model.NewRiskRequest(model.RiskRequestParams{
		SubjectID:  "cust-7",
		Currency:   "US",
		OccurredAt: testNow,
	})
	d, err := uc.Evaluate(context.Background(), req)

	var rej *usecase.RejectionError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, service.FieldCurrency, rej.Field())
	var verr *service.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.True(t, d.IsZero())
	assert.Zero(t, scorer.calls.Load())
	assert.Zero(t, sink.count())

	snap := m.snapshot()
	assert.Equal(t, 1, snap.rejections[service.FieldCurrency])
	assert.Zero(t, snap.decisions)
}

func TestEvaluateRisk_Deterministic(t *testing.T) {
	uc, _ := newEvaluateRisk(t, fixedScore(640), &recordingSink{}, false)
	req := riskRequest("corr-same", 12000)

	first, err := uc.Evaluate(context.Background(), req)
	require.NoError(t, err)
	second, err := uc.Evaluate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestEvaluateRisk_Execute(t *testing.T) {
	uc, _ := newEvaluateRisk(t, fixedScore(820), &recordingSink{}, false)
	amount := "15000"

	resp, err := uc.Execute(context.Background(), dto.EvaluateRiskRequest{
		SubjectID:     "cust-7",
		CorrelationID: "corr-dto",
		Amount:        &amount,
		Currency:      "USD",
		OccurredAt:    testNow,
	})

	require.NoError(t, err)
	assert.Equal(t, "corr-dto", resp.CorrelationID)
	assert.Equal(t, "CRITICAL", resp.Tier)
	assert.Equal(t, "BLOCK", resp.Recommendation)
	assert.Equal(t, "0.95", resp.Confidence)
}

func TestEvaluateRisk_Execute_BadAmount(t *testing.T) {
	scorer := fixedScore(100)
	uc, _ := newEvaluateRisk(t, scorer, &recordingSink{}, false)
	amount := "lots"

	_, err := uc.Execute(context.Background(), dto.EvaluateRiskRequest{
		SubjectID: "cust-7", Amount: &amount, Currency: "USD", OccurredAt: testNow,
	})

	var rej *usecase.RejectionError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, service.FieldAmount, rej.Field())
	assert.Zero(t, scorer.calls.Load())
}

func TestEvaluateRisk_Execute_SubjectCheckedBeforeAmount(t *testing.T) {
	scorer := fixedScore(100)
	uc, m := newEvaluateRisk(t, scorer, &recordingSink{}, false)
	amount := "abc"

	_, err := uc.Execute(context.Background(), dto.EvaluateRiskRequest{
		SubjectID: "", Amount: &amount, Currency: "USD", OccurredAt: testNow,
	})

	var rej *usecase.RejectionError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, service.FieldSubjectID, rej.Field())
	assert.Equal(t, 1, m.snapshot().rejections[service.FieldSubjectID])
	assert.Zero(t, scorer.calls.Load())
}

// blockingModel ignores its context and returns only when released.
type blockingModel struct {
	release <-chan struct{}
}

func (m blockingModel) Name() string { return "blocking" }

func (m blockingModel) Score(context.Context, model.RiskRequest) (int, error) {
	<-m.release
	return 900, nil
}

func TestEvaluateRisk_BudgetHoldsWhenModelIgnoresContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	client := scoring.NewClient(blockingModel{release: release},
		scoring.ClientConfig{MaxConcurrent: 4, RetryDelay: time.Millisecond}, nil, testLogger())
	sink := &recordingSink{}
	uc, err := usecase.NewEvaluateRisk(
		service.DefaultRiskPolicy(),
		nil,
		client,
		sink,
		usecase.EvaluateRiskConfig{Now: testClock, Budget: testBudget},
		nil,
		testLogger(),
	)
	require.NoError(t, err)

	start := time.Now()
	d, err := uc.Evaluate(context.Background(), riskRequest("corr-stuck", 50))
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Less(t, elapsed, testBudget+50*time.Millisecond)
	assert.True(t, d.Degraded())
	assert.Equal(t, valueobject.RiskTierMedium, d.Tier())
	assert.Equal(t, "primary scoring unavailable (deadline_exceeded)", d.Reasons()[0])
	assert.Zero(t, sink.count())
}

func TestNewEvaluateRisk_InvalidConfig(t *testing.T) {
	policy := service.DefaultRiskPolicy()
	policy.Thresholds.MediumMax = 100

	_, err := usecase.NewEvaluateRisk(policy, nil, fixedScore(1), nil,
		usecase.EvaluateRiskConfig{Budget: time.Second}, nil, testLogger())
	assert.Error(t, err)

	_, err = usecase.NewEvaluateRisk(service.DefaultRiskPolicy(), nil, fixedScore(1), nil,
		usecase.EvaluateRiskConfig{}, nil, testLogger())
	assert.Error(t, err)
}
