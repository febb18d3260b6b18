package analysis

import (
	"time"

	apperrors "finpulse/internal/errors"
	"finpulse/internal/stats"
)

// Condition names why a test was skipped or how its result must be read
type Condition string

const (
	ConditionNone             Condition = ""
	ConditionTooFewGroups     Condition = "too_few_groups"
	ConditionInsufficientData Condition = "insufficient_data"
	ConditionZeroRange        Condition = "zero_range"
	ConditionApproximate      Condition = "approximate"
	ConditionDegenerate       Condition = "degenerate"
)

// TestOutcome is a test result, or the condition that prevented it
type TestOutcome struct {
	Result    *stats.TestResult `json:"result,omitempty"`
	Condition Condition         `json:"condition,omitempty"`
	Detail    string            `json:"detail,omitempty"`
}

// Computed reports whether the test produced a statistic
func (o TestOutcome) Computed() bool {
	return o.Result != nil
}

// Passes reports whether the test ran and did not reject at alpha
func (o TestOutcome) Passes(alpha float64) bool {
	return o.Result != nil && !o.Result.Rejects(alpha)
}

// GroupResult carries one group's descriptive statistics and normality test
type GroupResult struct {
	Key       string        `json:"key"`
	Summary   stats.Summary `json:"summary"`
	Normality TestOutcome   `json:"normality"`
}

// Interpretation applies alpha to the three tests
type Interpretation struct {
	AllNormal      bool `json:"all_normal"`
	EqualVariances bool `json:"equal_variances"`
	MeansDiffer    bool `json:"means_differ"`
}

// Report is the structured outcome of one group comparison
type Report struct {
	Key        Field          `json:"key"`
	Measure    Field          `json:"measure"`
	Alpha      float64        `json:"alpha"`
	Records    int            `json:"records"`
	Excluded   int            `json:"excluded"`
	Groups     []GroupResult  `json:"groups"`
	Levene     TestOutcome    `json:"levene"`
	ANOVA      TestOutcome    `json:"anova"`
	Conditions []Condition    `json:"conditions,omitempty"`
	Verdict    Interpretation `json:"interpretation"`
	Warnings   []string       `json:"warnings,omitempty"`
	Duration   time.Duration  `json:"-"`
}

// HasCondition reports whether c was raised at report level
func (r *Report) HasCondition(c Condition) bool {
	for _, have := range r.Conditions {
		if have == c {
			return true
		}
	}
	return false
}

// GroupKeys returns the group keys in report order
func (r *Report) GroupKeys() []string {
	keys := make([]string, len(r.Groups))
	for i, g := range r.Groups {
		keys[i] = g.Key
	}
	return keys
}

// AssumptionViolations counts groups failing normality plus a failed Levene test
func (r *Report) AssumptionViolations() int {
	n := 0
	for _, g := range r.Groups {
		if g.Normality.Computed() && !g.Normality.Passes(r.Alpha) {
			n++
		}
	}
	if r.Levene.Computed() && !r.Levene.Passes(r.Alpha) {
		n++
	}
	return n
}

// outcomeFrom turns a stats call into an outcome. dataQuality names the
// condition a DATA_QUALITY error maps to for this test.
func outcomeFrom(res stats.TestResult, err error, dataQuality Condition) TestOutcome {
	if err != nil {
		cond := ConditionDegenerate
		switch {
		case apperrors.IsType(err, apperrors.ErrTypeInsufficientData):
			cond = ConditionInsufficientData
		case apperrors.IsType(err, apperrors.ErrTypeDataQuality):
			cond = dataQuality
		}
		return TestOutcome{Condition: cond, Detail: err.Error()}
	}
	out := TestOutcome{Result: &res}
	if res.Approximate {
		out.Condition = ConditionApproximate
	}
	return out
}
