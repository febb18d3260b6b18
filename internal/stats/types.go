package stats

// TestResult is the outcome of a hypothesis test
type TestResult struct {
	Statistic float64 `json:"statistic"`
	PValue    float64 `json:"p_value"`

	// Degrees of freedom, set by tests built on the F distribution
	DFBetween int `json:"df_between,omitempty"`
	DFWithin  int `json:"df_within,omitempty"`

	// Approximate is set when the sample lies outside the range the
	// approximation was calibrated for.
	Approximate bool `json:"approximate,omitempty"`
}

// Rejects reports whether the null hypothesis is rejected at alpha
func (r TestResult) Rejects(alpha float64) bool {
	return r.PValue < alpha
}

// Summary holds descriptive statistics of one sample
type Summary struct {
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Median float64 `json:"median"`
	Max    float64 `json:"max"`
}

// Minimum sample sizes
const (
	MinShapiroN  = 3
	MaxShapiroN  = 5000
	MinGroups    = 2
	DefaultAlpha = 0.05
)
