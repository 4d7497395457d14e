package service

import "github.com/shopspring/decimal"

// ConfidenceEstimator reports how reliable a score is, in [0,1].
type ConfidenceEstimator func(score int) decimal.Decimal

var (
	extremeConfidence = decimal.RequireFromString("0.95")
	middleConfidence  = decimal.RequireFromString("0.70")
)

// HeuristicConfidence is U-shaped: 0.95 at or below 100 and at or above 800,
// 0.70 across [300,600], linear in between, rounded to two places.
func HeuristicConfidence(score int) decimal.Decimal {
	switch {
	case score <= 100 || score >= 800:
		return extremeConfidence
	case score >= 300 && score <= 600:
		return middleConfidence
	case score < 300:
		return interpolate(score, 100, 300, extremeConfidence, middleConfidence)
	default:
		return interpolate(score, 600, 800, middleConfidence, extremeConfidence)
	}
}

func interpolate(score, fromScore, toScore int, from, to decimal.Decimal) decimal.Decimal {
	fraction := decimal.NewFromInt(int64(score - fromScore)).
		Div(decimal.NewFromInt(int64(toScore - fromScore)))
	return from.Add(to.Sub(from).Mul(fraction)).Round(2)
}
