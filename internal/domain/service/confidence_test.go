package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestHeuristicConfidence(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{0, "0.95"},
		{100, "0.95"},
		{150, "0.89"},
		{200, "0.83"},
		{300, "0.7"},
		{450, "0.7"},
		{600, "0.7"},
		{700, "0.83"},
		{800, "0.95"},
		{1000, "0.95"},
	}

	for _, tt := range tests {
		got := HeuristicConfidence(tt.score)
		assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "score %d: got %s", tt.score, got)
	}
}

func TestHeuristicConfidence_Bounded(t *testing.T) {
	one := decimal.NewFromInt(1)
	for score := 0; score <= 1000; score++ {
		got := HeuristicConfidence(score)
		assert.False(t, got.IsNegative(), "score %d", score)
		assert.True(t, got.LessThanOrEqual(one), "score %d", score)
	}
}
