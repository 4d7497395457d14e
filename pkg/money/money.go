// Package money holds the currency code and amount formatting rules shared by
// request validation and decision explanations.
package money

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"
)

var currencyCodeRe = regexp.MustCompile(`^[A-Z]{3}$`)

// Currency is a three-letter ISO 4217 style code.
type Currency string

// ParseCurrency accepts exactly three uppercase ASCII letters. No registry
// lookup is done, so unassigned codes such as "ZZZ" are accepted.
func ParseCurrency(code string) (Currency, error) {
	if !currencyCodeRe.MatchString(code) {
		return "", fmt.Errorf("invalid currency code %q: must be exactly 3 uppercase letters", code)
	}
	return Currency(code), nil
}

// Format renders amount with two decimal places followed by the currency,
// e.g. "15000.00 USD". An empty currency renders the amount alone.
func Format(amount decimal.Decimal, c Currency) string {
	if c == "" {
		return amount.StringFixed(2)
	}
	return amount.StringFixed(2) + " " + string(c)
}
