package scoring

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/risk-orchestrator/internal/domain/model"
)

func TestRuleModel_Score(t *testing.T) {
	tests := []struct {
		name     string
		amount   int64
		currency string
		signals  map[string]string
		want     int
	}{
		{name: "baseline", amount: 100, currency: "USD", want: 50},
		{name: "high value", amount: 15000, currency: "USD", want: 300},
		{name: "very high value", amount: 60000, currency: "USD", want: 450},
		{
			name: "cross border", amount: 100, currency: "USD",
			signals: map[string]string{"source_country": "US", "destination_country": "GB"},
			want:    200,
		},
		{
			name: "high risk destination", amount: 100, currency: "USD",
			signals: map[string]string{"source_country": "US", "destination_country": "KP"},
			want:    450,
		},
		{name: "unusual currency", amount: 100, currency: "BTC", want: 150},
		{
			name: "capped", amount: 60000, currency: "XMR",
			signals: map[string]string{
				"source_country": "US", "destination_country": "IR",
				"account_age": "new", "rapid_transactions": "true",
			},
			want: 1000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := model.NewRiskRequest(model.RiskRequestParams{
				SubjectID:  "cust-1",
				Amount:     decimal.NewNullDecimal(decimal.NewFromInt(tt.amount)),
				Currency:   tt.currency,
				OccurredAt: time.Now(),
				Context:    tt.signals,
			})

			score, err := RuleModel{}.Score(context.Background(), req)

			require.NoError(t, err)
			assert.Equal(t, tt.want, score)
		})
	}
}

func TestRuleModel_Score_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RuleModel{}.Score(ctx, testRequest())

	assert.ErrorIs(t, err, context.Canceled)
}
