package stats

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Describe computes count, mean, sample standard deviation, min, median and max.
// An empty sample yields the zero Summary; a single value has zero deviation.
func Describe(x []float64) Summary {
	if len(x) == 0 {
		return Summary{}
	}
	sorted := sortedCopy(x)
	s := Summary{
		N:      len(x),
		Mean:   stat.Mean(x, nil),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Median: medianSorted(sorted),
	}
	if len(x) > 1 {
		s.Std = stat.StdDev(x, nil)
	}
	return s
}

// Median returns the midpoint of the sample, averaging the two middle
// values when the count is even.
func Median(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return medianSorted(sortedCopy(x))
}

func medianSorted(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func sortedCopy(x []float64) []float64 {
	out := make([]float64, len(x))
	copy(out, x)
	sort.Float64s(out)
	return out
}

// sumSquares returns the sum of squared deviations from the mean
func sumSquares(x []float64, mean float64) float64 {
	var ss float64
	for _, v := range x {
		d := v - mean
		ss += d * d
	}
	return ss
}

func hasZeroRange(x []float64) bool {
	return floats.Max(x) == floats.Min(x)
}
