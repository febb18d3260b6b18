package stats

import (
	"gonum.org/v1/gonum/stat"
)

// Pearson returns the Pearson correlation of x and y.
// ok is false when the slices differ in length, hold fewer than two
// values, or either side is constant.
func Pearson(x, y []float64) (r float64, ok bool) {
	if len(x) != len(y) || len(x) < 2 {
		return 0, false
	}
	if hasZeroRange(x) || hasZeroRange(y) {
		return 0, false
	}
	return stat.Correlation(x, y, nil), true
}
