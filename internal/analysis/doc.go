// Package analysis compares a numeric measure across the groups of a
// categorical key.
//
// Analyze partitions a dataset (for example revenue by region), then runs
// per-group Shapiro-Wilk normality tests concurrently, Levene's test for
// equal variances and a one-way ANOVA. Normality is an advisory
// precondition: a rejection is recorded as a warning and the ANOVA still
// runs. Tests that cannot be computed for the data at hand are recorded as
// named conditions on the Report rather than returned as errors:
//
//	too_few_groups     fewer than two groups, Levene and ANOVA skipped
//	insufficient_data  a group below three observations, or N <= k
//	zero_range         a constant group, normality undefined
//	degenerate         zero within-group variance, F undefined
//	approximate        a group above 5000 observations
//
// Usage:
//
//	analyzer := analysis.NewAnalyzer(analysis.DefaultOptions(), logger)
//	report, err := analyzer.Analyze(ctx, ds, analysis.FieldRegion, analysis.FieldRevenue)
//	if err != nil {
//		return err
//	}
//	if report.Verdict.MeansDiffer { ... }
package analysis
