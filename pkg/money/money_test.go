package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCurrency(t *testing.T) {
	tests := []struct {
		code    string
		wantErr bool
	}{
		{"USD", false},
		{"ZZZ", false},
		{"US", true},
		{"usd", true},
		{"USDT", true},
		{"U5D", true},
		{"ÜSD", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			c, err := ParseCurrency(tt.code)
			if tt.wantErr {
				require.Error(t, err)
				assert.Empty(t, c)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, Currency(tt.code), c)
		})
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "15000.00 USD", Format(decimal.NewFromInt(15000), "USD"))
	assert.Equal(t, "0.10 EUR", Format(decimal.RequireFromString("0.1"), "EUR"))
	assert.Equal(t, "12.35", Format(decimal.RequireFromString("12.345"), ""))
}
