package reporting

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"finpulse/internal/analysis"
	apperrors "finpulse/internal/errors"
)

// WriteSummary writes the plain-text interpretation of b to path
func (r *Reporter) WriteSummary(ctx context.Context, path string, b *Bundle) error {
	r.logger.InfoContext(ctx, "Writing summary", slog.String("path", path))

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.NewStorageError("failed to create directory for summary", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return apperrors.NewStorageError("failed to create summary", err).WithContext("path", path)
	}

	w := bufio.NewWriter(file)
	if err := RenderSummary(w, b); err != nil {
		file.Close()
		return apperrors.NewStorageError("failed to write summary", err).WithContext("path", path)
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return apperrors.NewStorageError("failed to flush summary", err).WithContext("path", path)
	}
	return file.Close()
}

// RenderSummary writes the human-readable report. The conventions follow
// the usual reading: p < alpha rejects the null hypothesis of each test.
func RenderSummary(w io.Writer, b *Bundle) error {
	rep := b.Analysis
	sw := &summaryWriter{w: w}

	sw.printf("finpulse analysis summary\n")
	sw.printf("Run: %s\n", b.RunID)
	sw.printf("Generated: %s\n\n", b.GeneratedAt.Format("2006-01-02 15:04:05 MST"))

	sw.printf("Dataset: %d records, %d with undefined profit margin\n", b.Records, b.QualityIssues)
	sw.printf("Comparison: %s by %s, alpha %.2g\n", rep.Measure.Label(), rep.Key.Label(), rep.Alpha)
	if rep.Excluded > 0 {
		sw.printf("Excluded: %d records with an undefined %s\n", rep.Excluded, rep.Measure)
	}
	sw.printf("\n")

	if len(rep.Groups) > 0 {
		sw.printf("Groups\n")
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintf(tw, "%s\tN\tMean\tStd\tMin\tMedian\tMax\tShapiro W\tp\t\n", rep.Key.Label())
		for _, g := range rep.Groups {
			s := g.Summary
			fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%s\t%s\t\n",
				g.Key, s.N, s.Mean, s.Std, s.Min, s.Median, s.Max,
				statistic(g.Normality), pValue(g.Normality))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		sw.printf("\n")
	}

	sw.printf("Normality (Shapiro-Wilk): %s\n", normalityVerdict(rep))
	sw.printf("Equal variances (Levene): %s\n", testLine(rep.Levene, rep.Alpha,
		"variances differ between groups", "no evidence of unequal variances"))
	sw.printf("One-way ANOVA: %s\n", anovaLine(rep))

	if len(rep.Warnings) > 0 {
		sw.printf("\nWarnings\n")
		for _, warning := range rep.Warnings {
			sw.printf("  - %s\n", warning)
		}
	}
	if len(rep.Conditions) > 0 {
		conds := make([]string, len(rep.Conditions))
		for i, c := range rep.Conditions {
			conds[i] = string(c)
		}
		sw.printf("Conditions: %s\n", strings.Join(conds, ", "))
	}

	if len(b.RegionRevenue) > 0 {
		sw.printf("\nAverage revenue by region (ascending)\n")
		for _, p := range b.RegionRevenue {
			sw.printf("  %-10s %12.2f\n", p.Label, p.Value)
		}
	}
	return sw.err
}

type summaryWriter struct {
	w   io.Writer
	err error
}

func (s *summaryWriter) printf(format string, args ...interface{}) {
	if s.err != nil {
		return
	}
	_, s.err = fmt.Fprintf(s.w, format, args...)
}

func statistic(o analysis.TestOutcome) string {
	if !o.Computed() {
		return "-"
	}
	return fmt.Sprintf("%.4f", o.Result.Statistic)
}

func pValue(o analysis.TestOutcome) string {
	if !o.Computed() {
		return string(o.Condition)
	}
	return fmt.Sprintf("%.4g", o.Result.PValue)
}

func normalityVerdict(rep *analysis.Report) string {
	switch {
	case len(rep.Groups) == 0:
		return "not tested"
	case rep.Verdict.AllNormal:
		return "no group departs from normality"
	default:
		return "at least one group is not normal or could not be tested"
	}
}

func testLine(o analysis.TestOutcome, alpha float64, reject, accept string) string {
	if !o.Computed() {
		return fmt.Sprintf("not computed (%s)", o.Condition)
	}
	verdict := accept
	if o.Result.Rejects(alpha) {
		verdict = reject
	}
	return fmt.Sprintf("W=%.4f, p=%.4g, %s", o.Result.Statistic, o.Result.PValue, verdict)
}

func anovaLine(rep *analysis.Report) string {
	o := rep.ANOVA
	if !o.Computed() {
		return fmt.Sprintf("not computed (%s)", o.Condition)
	}
	verdict := "no significant difference between group means"
	if rep.Verdict.MeansDiffer {
		verdict = "group means differ significantly"
	}
	return fmt.Sprintf("F(%d, %d)=%.4f, p=%.4g, %s",
		o.Result.DFBetween, o.Result.DFWithin, o.Result.Statistic, o.Result.PValue, verdict)
}
