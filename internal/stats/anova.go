package stats

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	apperrors "finpulse/internal/errors"
)

// OneWayANOVA tests whether the group means are equal.
//
// F = (SSB / (k-1)) / (SSW / (N-k)), with the p-value taken from the upper
// tail of F(k-1, N-k). Fewer than two groups, an empty group, or N <= k
// return an INSUFFICIENT_DATA error. Zero within-group variance makes F
// undefined and returns a DATA_QUALITY error.
func OneWayANOVA(groups [][]float64) (TestResult, error) {
	k := len(groups)
	if k < MinGroups {
		return TestResult{}, apperrors.NewInsufficientDataError("ANOVA needs at least 2 groups", k, MinGroups)
	}

	total := 0
	var grandSum float64
	for i, g := range groups {
		if len(g) == 0 {
			return TestResult{}, apperrors.NewInsufficientDataError("ANOVA group is empty", 0, 1).
				WithContext("group", i)
		}
		total += len(g)
		for _, v := range g {
			grandSum += v
		}
	}
	if total <= k {
		return TestResult{}, apperrors.NewInsufficientDataError(
			"ANOVA needs more observations than groups", total, k+1)
	}

	grandMean := grandSum / float64(total)
	var ssb, ssw float64
	for _, g := range groups {
		mean := sampleMean(g)
		d := mean - grandMean
		ssb += float64(len(g)) * d * d
		ssw += sumSquares(g, mean)
	}

	dfb, dfw := k-1, total-k
	if ssw <= 0 {
		return TestResult{}, apperrors.NewDataQualityError("F statistic undefined: zero within-group variance").
			WithContext("ss_between", ssb)
	}

	f := (ssb / float64(dfb)) / (ssw / float64(dfw))
	dist := distuv.F{D1: float64(dfb), D2: float64(dfw)}
	p := clampProbability(1 - dist.CDF(f))
	if math.IsInf(f, 1) {
		p = 0
	}

	return TestResult{
		Statistic: f,
		PValue:    p,
		DFBetween: dfb,
		DFWithin:  dfw,
	}, nil
}

// Levene tests whether the groups have equal variances using deviations from
// each group's median (the Brown-Forsythe variant). It is a one-way ANOVA on
// the absolute deviations and shares its error conditions.
func Levene(groups [][]float64) (TestResult, error) {
	deviations := make([][]float64, len(groups))
	for i, g := range groups {
		med := Median(g)
		z := make([]float64, len(g))
		for j, v := range g {
			z[j] = math.Abs(v - med)
		}
		deviations[i] = z
	}
	return OneWayANOVA(deviations)
}

func sampleMean(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += v
	}
	return sum / float64(len(x))
}
