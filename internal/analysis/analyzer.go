package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"finpulse/internal/dataset"
	apperrors "finpulse/internal/errors"
	"finpulse/internal/stats"
)

// Options configures an Analyzer
type Options struct {
	Alpha          float64
	MaxConcurrency int
}

// DefaultOptions returns alpha 0.05 and four concurrent normality tests
func DefaultOptions() Options {
	return Options{Alpha: stats.DefaultAlpha, MaxConcurrency: 4}
}

// Analyzer compares a measure across the groups of a categorical key
type Analyzer struct {
	opts   Options
	logger *slog.Logger
}

// NewAnalyzer creates an analyzer. Non-positive options fall back to defaults.
func NewAnalyzer(opts Options, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultOptions()
	if opts.Alpha <= 0 || opts.Alpha >= 1 {
		opts.Alpha = def.Alpha
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = def.MaxConcurrency
	}
	return &Analyzer{opts: opts, logger: logger}
}

// Alpha returns the significance level in use
func (a *Analyzer) Alpha() float64 {
	return a.opts.Alpha
}

// Analyze partitions ds by key and runs, in order, a Shapiro-Wilk test per
// group, Levene's test and a one-way ANOVA on measure.
//
// Normality is advisory: a rejection adds a warning and ANOVA still runs.
// Tests that cannot be computed are reported through conditions instead of
// failing the call. An error is returned only for an empty dataset, an
// unsupported field or a cancelled context.
func (a *Analyzer) Analyze(ctx context.Context, ds *dataset.Dataset, key, measure Field) (*Report, error) {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ds.Len() == 0 {
		return nil, apperrors.NewInsufficientDataError("dataset is empty", 0, 1)
	}
	groups, excluded, err := Partition(ds, key, measure)
	if err != nil {
		return nil, err
	}

	a.logger.InfoContext(ctx, "starting group comparison",
		"key", key,
		"measure", measure,
		"records", ds.Len(),
		"groups", len(groups),
		"excluded", excluded,
	)

	report := &Report{
		Key:      key,
		Measure:  measure,
		Alpha:    a.opts.Alpha,
		Records:  ds.Len(),
		Excluded: excluded,
	}
	if excluded > 0 {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("%d records excluded: %s undefined", excluded, measure))
	}

	results, err := a.testNormality(ctx, groups)
	if err != nil {
		return nil, err
	}
	report.Groups = results

	if len(groups) < stats.MinGroups {
		report.Conditions = append(report.Conditions, ConditionTooFewGroups)
		detail := fmt.Sprintf("%d group(s) found, at least %d required", len(groups), stats.MinGroups)
		report.Levene = TestOutcome{Condition: ConditionTooFewGroups, Detail: detail}
		report.ANOVA = TestOutcome{Condition: ConditionTooFewGroups, Detail: detail}
		a.logger.WarnContext(ctx, "group comparison skipped", "reason", detail)
	} else {
		values := groupValues(groups)
		lev, levErr := stats.Levene(values)
		report.Levene = outcomeFrom(lev, levErr, ConditionDegenerate)
		anova, anovaErr := stats.OneWayANOVA(values)
		report.ANOVA = outcomeFrom(anova, anovaErr, ConditionDegenerate)
	}

	a.interpret(report)
	report.Duration = time.Since(start)

	attrs := []any{"duration", report.Duration, "means_differ", report.Verdict.MeansDiffer}
	if report.ANOVA.Computed() {
		attrs = append(attrs, "f", report.ANOVA.Result.Statistic, "p_value", report.ANOVA.Result.PValue)
	}
	a.logger.InfoContext(ctx, "group comparison completed", attrs...)

	return report, nil
}

// testNormality runs Shapiro-Wilk on every group concurrently. Results are
// written by group index so the output order is the sorted key order.
func (a *Analyzer) testNormality(ctx context.Context, groups []Group) ([]GroupResult, error) {
	results := make([]GroupResult, len(groups))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.MaxConcurrency)

	for i, group := range groups {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := stats.ShapiroWilk(group.Values)
			results[i] = GroupResult{
				Key:       group.Key,
				Summary:   stats.Describe(group.Values),
				Normality: outcomeFrom(res, err, ConditionZeroRange),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (a *Analyzer) interpret(r *Report) {
	alpha := r.Alpha
	allNormal := len(r.Groups) > 0

	for _, g := range r.Groups {
		out := g.Normality
		switch {
		case !out.Computed():
			allNormal = false
			r.Warnings = append(r.Warnings,
				fmt.Sprintf("group %s: normality not tested (%s)", g.Key, out.Condition))
		case !out.Passes(alpha):
			allNormal = false
			r.Warnings = append(r.Warnings,
				fmt.Sprintf("group %s: normality rejected (p=%.4g < %.2g); ANOVA results should be read with care",
					g.Key, out.Result.PValue, alpha))
		}
		if out.Condition == ConditionApproximate {
			r.Warnings = append(r.Warnings,
				fmt.Sprintf("group %s: %d observations exceed %d, normality p-value is approximate",
					g.Key, g.Summary.N, stats.MaxShapiroN))
		}
		if out.Condition != ConditionNone {
			r.addCondition(out.Condition)
		}
	}

	if !r.Levene.Computed() && r.Levene.Condition != ConditionTooFewGroups {
		r.addCondition(r.Levene.Condition)
	} else if r.Levene.Computed() && !r.Levene.Passes(alpha) {
		r.Warnings = append(r.Warnings,
			fmt.Sprintf("Levene test rejects equal variances (p=%.4g)", r.Levene.Result.PValue))
	}
	if !r.ANOVA.Computed() && r.ANOVA.Condition != ConditionTooFewGroups {
		r.addCondition(r.ANOVA.Condition)
	}

	r.Verdict = Interpretation{
		AllNormal:      allNormal,
		EqualVariances: r.Levene.Passes(alpha),
		MeansDiffer:    r.ANOVA.Computed() && r.ANOVA.Result.Rejects(alpha),
	}
}

func (r *Report) addCondition(c Condition) {
	if c == ConditionNone || r.HasCondition(c) {
		return
	}
	r.Conditions = append(r.Conditions, c)
}
