package stats

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	apperrors "finpulse/internal/errors"
)

// Royston (1995) polynomial coefficients for the two extreme weights
var (
	swLastCoef       = [6]float64{0, 0.221157, -0.147981, -2.071190, 4.434685, -2.706056}
	swSecondLastCoef = [6]float64{0, 0.042981, -0.293762, -1.752461, 5.682633, -3.582633}
)

// ShapiroWilk tests the null hypothesis that x was drawn from a normal
// distribution, using Royston's approximation (algorithm AS R94).
//
// Samples smaller than MinShapiroN return an INSUFFICIENT_DATA error and a
// sample with zero range returns a DATA_QUALITY error. Samples larger than
// MaxShapiroN are still evaluated but marked Approximate.
func ShapiroWilk(x []float64) (TestResult, error) {
	n := len(x)
	if n < MinShapiroN {
		return TestResult{}, apperrors.NewInsufficientDataError(
			"normality test needs at least 3 observations", n, MinShapiroN)
	}
	if hasZeroRange(x) {
		return TestResult{}, apperrors.NewDataQualityError("normality test undefined for a sample with zero range").
			WithContext("n", n)
	}

	sorted := sortedCopy(x)
	a := shapiroWeights(n)

	mean := floats.Sum(sorted) / float64(n)
	ss := sumSquares(sorted, mean)
	w := math.Pow(floats.Dot(a, sorted), 2) / ss
	if w > 1 {
		w = 1
	}

	return TestResult{
		Statistic:   w,
		PValue:      shapiroPValue(w, n),
		Approximate: n > MaxShapiroN,
	}, nil
}

// shapiroWeights returns the antisymmetric weight vector for n sorted observations
func shapiroWeights(n int) []float64 {
	a := make([]float64, n)
	if n == 3 {
		a[0], a[2] = -math.Sqrt(0.5), math.Sqrt(0.5)
		return a
	}

	m := make([]float64, n)
	for i := range m {
		m[i] = distuv.UnitNormal.Quantile((float64(i+1) - 0.375) / (float64(n) + 0.25))
	}
	mm := floats.Dot(m, m)
	u := 1 / math.Sqrt(float64(n))

	last := m[n-1]/math.Sqrt(mm) + poly(swLastCoef[:], u)
	a[n-1], a[0] = last, -last

	var phi float64
	first := 1
	if n > 5 {
		secondLast := m[n-2]/math.Sqrt(mm) + poly(swSecondLastCoef[:], u)
		a[n-2], a[1] = secondLast, -secondLast
		phi = (mm - 2*m[n-1]*m[n-1] - 2*m[n-2]*m[n-2]) /
			(1 - 2*last*last - 2*secondLast*secondLast)
		first = 2
	} else {
		phi = (mm - 2*m[n-1]*m[n-1]) / (1 - 2*last*last)
	}

	sqrtPhi := math.Sqrt(phi)
	for i := first; i < n-first; i++ {
		a[i] = m[i] / sqrtPhi
	}
	return a
}

// shapiroPValue converts W to a p-value with Royston's normalizing transforms
func shapiroPValue(w float64, n int) float64 {
	if n == 3 {
		p := 6 / math.Pi * (math.Asin(math.Sqrt(w)) - math.Pi/3)
		return clampProbability(p)
	}

	fn := float64(n)
	y := math.Log(1 - w)
	var mu, sigma float64

	if n <= 11 {
		gamma := -2.273 + 0.459*fn
		if y >= gamma {
			return 1e-99
		}
		y = -math.Log(gamma - y)
		mu = 0.544 - 0.39978*fn + 0.025054*fn*fn - 0.0006714*fn*fn*fn
		sigma = math.Exp(1.3822 - 0.77857*fn + 0.062767*fn*fn - 0.0020322*fn*fn*fn)
	} else {
		ln := math.Log(fn)
		mu = -1.5861 - 0.31082*ln - 0.083751*ln*ln + 0.0038915*ln*ln*ln
		sigma = math.Exp(-0.4803 - 0.082676*ln + 0.0030302*ln*ln)
	}

	return clampProbability(distuv.UnitNormal.Survival((y - mu) / sigma))
}

// poly evaluates c[0] + c[1]x + c[2]x^2 + ...
func poly(c []float64, x float64) float64 {
	var result float64
	for i := len(c) - 1; i >= 0; i-- {
		result = result*x + c[i]
	}
	return result
}

func clampProbability(p float64) float64 {
	switch {
	case math.IsNaN(p):
		return 1
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}
