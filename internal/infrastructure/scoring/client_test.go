package scoring

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/risk-orchestrator/internal/domain/model"
	"github.com/bibbank/risk-orchestrator/internal/domain/port"
	"github.com/bibbank/risk-orchestrator/internal/domain/service"
	"github.com/bibbank/risk-orchestrator/pkg/circuitbreaker"
)

// --- Mock ---

type mockModel struct {
	calls   atomic.Int32
	scoreFn func(ctx context.Context, call int32) (int, error)
}

func (m *mockModel) Name() string { return "mock" }

func (m *mockModel) Score(ctx context.Context, _ model.RiskRequest) (int, error) {
	n := m.calls.Add(1)
	return m.scoreFn(ctx, n)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRequest() model.RiskRequest {
	return model.NewRiskRequest(model.RiskRequestParams{
		SubjectID:     "cust-1",
		CorrelationID: "corr-1",
		Amount:        decimal.NewNullDecimal(decimal.NewFromInt(250)),
		Currency:      "USD",
		OccurredAt:    time.Now().UTC(),
	})
}

func newTestClient(m port.ScoringModel, maxConcurrent int64, breaker *circuitbreaker.Breaker) *Client {
	return NewClient(m, ClientConfig{MaxConcurrent: maxConcurrent, RetryDelay: time.Millisecond}, breaker, testLogger())
}

func scoringKind(t *testing.T, err error) service.ScoringErrorKind {
	t.Helper()
	var serr *service.ScoringError
	require.ErrorAs(t, err, &serr)
	return serr.Kind
}

// --- Tests ---

func TestClient_Score_Success(t *testing.T) {
	m := &mockModel{scoreFn: func(context.Context, int32) (int, error) { return 420, nil }}
	client := newTestClient(m, 4, nil)

	score, err := client.Score(context.Background(), testRequest())

	require.NoError(t, err)
	assert.Equal(t, 420, score)
	assert.Equal(t, int32(1), m.calls.Load())
}

func TestClient_Score_RetriesTransportFailureOnce(t *testing.T) {
	m := &mockModel{scoreFn: func(_ context.Context, call int32) (int, error) {
		if call == 1 {
			return 0, port.ErrTransport
		}
		return 730, nil
	}}
	client := newTestClient(m, 4, nil)

	score, err := client.Score(context.Background(), testRequest())

	require.NoError(t, err)
	assert.Equal(t, 730, score)
	assert.Equal(t, int32(2), m.calls.Load())
}

func TestClient_Score_TransportFailureAfterRetry(t *testing.T) {
	m := &mockModel{scoreFn: func(context.Context, int32) (int, error) { return 0, port.ErrTransport }}
	client := newTestClient(m, 4, nil)

	_, err := client.Score(context.Background(), testRequest())

	assert.Equal(t, service.ScoringUnavailable, scoringKind(t, err))
	assert.Equal(t, int32(2), m.calls.Load())
}

func TestClient_Score_NoRetryOnRejection(t *testing.T) {
	m := &mockModel{scoreFn: func(context.Context, int32) (int, error) {
		return 0, errors.Join(port.ErrScorerRejected, errors.New("bad subject"))
	}}
	client := newTestClient(m, 4, nil)

	_, err := client.Score(context.Background(), testRequest())

	assert.Equal(t, service.ScoringUnavailable, scoringKind(t, err))
	assert.Equal(t, int32(1), m.calls.Load())
}

func TestClient_Score_InvalidResponse(t *testing.T) {
	tests := []struct {
		name  string
		score int
		err   error
	}{
		{name: "above range", score: 1001},
		{name: "below range", score: -1},
		{name: "malformed", err: port.ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockModel{scoreFn: func(context.Context, int32) (int, error) { return tt.score, tt.err }}
			client := newTestClient(m, 4, nil)

			score, err := client.Score(context.Background(), testRequest())

			assert.Zero(t, score)
			assert.Equal(t, service.ScoringInvalidResponse, scoringKind(t, err))
			assert.Equal(t, int32(1), m.calls.Load())
		})
	}
}

func TestClient_Score_BoundaryScoresAccepted(t *testing.T) {
	for _, want := range []int{model.MinScore, model.MaxScore} {
		m := &mockModel{scoreFn: func(context.Context, int32) (int, error) { return want, nil }}
		score, err := newTestClient(m, 1, nil).Score(context.Background(), testRequest())
		require.NoError(t, err)
		assert.Equal(t, want, score)
	}
}

func TestClient_Score_RespectsDeadline(t *testing.T) {
	const budget = 50 * time.Millisecond
	m := &mockModel{scoreFn: func(ctx context.Context, _ int32) (int, error) {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(2 * budget):
			return 900, nil
		}
	}}
	client := newTestClient(m, 4, nil)

	ctx, cancel := context.WithTimeout(context.Background(), budget)
	defer cancel()

	start := time.Now()
	_, err := client.Score(ctx, testRequest())
	elapsed := time.Since(start)

	assert.Equal(t, service.ScoringDeadlineExceeded, scoringKind(t, err))
	assert.Less(t, elapsed, budget+40*time.Millisecond)
	assert.Equal(t, int32(1), m.calls.Load(), "deadline expiry is never retried")
}

func TestClient_Score_ModelIgnoringDeadline(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	m := &mockModel{scoreFn: func(context.Context, int32) (int, error) {
		<-release
		return 100, nil
	}}
	client := newTestClient(m, 4, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.Score(ctx, testRequest())

	assert.Equal(t, service.ScoringDeadlineExceeded, scoringKind(t, err))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestClient_Score_BulkheadFailsFast(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	m := &mockModel{scoreFn: func(_ context.Context, call int32) (int, error) {
		if call == 1 {
			started <- struct{}{}
			<-release
		}
		return 300, nil
	}}
	client := newTestClient(m, 1, nil)

	// The first call gives up at its deadline but its permit stays held.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	go func() { _, _ = client.Score(ctx, testRequest()) }()
	<-started

	_, err := client.Score(context.Background(), testRequest())
	assert.Equal(t, service.ScoringUnavailable, scoringKind(t, err))
	assert.ErrorIs(t, err, errBulkheadFull)

	<-ctx.Done()
	time.Sleep(5 * time.Millisecond)
	_, err = client.Score(context.Background(), testRequest())
	assert.ErrorIs(t, err, errBulkheadFull, "abandoned call still holds its permit")

	close(release)
	require.Eventually(t, func() bool {
		_, err := client.Score(context.Background(), testRequest())
		return err == nil
	}, time.Second, 5*time.Millisecond)
}

func TestClient_Score_BreakerOpens(t *testing.T) {
	breaker := circuitbreaker.New("scoring-test", 1, time.Minute)
	m := &mockModel{scoreFn: func(context.Context, int32) (int, error) { return 0, port.ErrTransport }}
	client := newTestClient(m, 4, breaker)

	_, err := client.Score(context.Background(), testRequest())
	assert.Equal(t, service.ScoringUnavailable, scoringKind(t, err))
	assert.Equal(t, circuitbreaker.StateOpen, breaker.State())
	assert.Equal(t, int32(1), m.calls.Load(), "retry is refused by the open circuit")

	_, err = client.Score(context.Background(), testRequest())
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.Equal(t, int32(1), m.calls.Load())
}

func TestClient_Score_BreakerIgnoresRejections(t *testing.T) {
	breaker := circuitbreaker.New("scoring-reject-test", 1, time.Minute)
	m := &mockModel{scoreFn: func(context.Context, int32) (int, error) { return 0, port.ErrScorerRejected }}
	client := newTestClient(m, 4, breaker)

	_, err := client.Score(context.Background(), testRequest())

	assert.Error(t, err)
	assert.Equal(t, circuitbreaker.StateClosed, breaker.State())
}

func TestClient_Score_RecoversPanic(t *testing.T) {
	m := &mockModel{scoreFn: func(context.Context, int32) (int, error) { panic("boom") }}
	client := newTestClient(m, 1, nil)

	_, err := client.Score(context.Background(), testRequest())

	assert.Equal(t, service.ScoringUnavailable, scoringKind(t, err))
	assert.ErrorIs(t, err, errModelPanic)

	// The permit was returned despite the panic.
	m.scoreFn = func(context.Context, int32) (int, error) { return 10, nil }
	score, err := client.Score(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, 10, score)
}
