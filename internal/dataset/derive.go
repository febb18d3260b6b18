package dataset

import (
	"math"

	"github.com/shopspring/decimal"
)

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Round2 rounds to two decimal places, half away from zero.
// Rounding happens on the shortest decimal form of v, so 2.675 becomes 2.68.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Profit returns revenue minus cost rounded to cents
func Profit(revenue, cost float64) float64 {
	return decimal.NewFromFloat(revenue).Sub(decimal.NewFromFloat(cost)).Round(2).InexactFloat64()
}

// ProfitMargin returns profit as a percentage of revenue rounded to two decimals.
// The second result is false when revenue is zero and the margin is undefined.
func ProfitMargin(profit, revenue float64) (float64, bool) {
	if revenue == 0 {
		return 0, false
	}
	margin := profit / revenue * 100
	if !isFinite(margin) {
		return 0, false
	}
	return Round2(margin), true
}
