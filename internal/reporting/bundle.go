package reporting

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"finpulse/internal/analysis"
	"finpulse/internal/dataset"
)

// Bundle is everything the report writers need about one run
type Bundle struct {
	RunID         string            `json:"run_id"`
	GeneratedAt   time.Time         `json:"generated_at"`
	Records       int               `json:"records"`
	QualityIssues int               `json:"quality_issues"`
	Analysis      *analysis.Report  `json:"analysis"`
	RevenueTrend  []Point           `json:"revenue_trend"`
	MarginTrend   []Point           `json:"margin_trend"`
	RegionRevenue []Point           `json:"region_average_revenue"`
	RegionProfit  []Point           `json:"region_total_profit"`
	Distribution  []BoxStats        `json:"distribution"`
	Correlation   *Correlation      `json:"correlation"`
	Artifacts     map[string]string `json:"artifacts,omitempty"`
}

// Reporter builds bundles and renders them to disk
type Reporter struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewReporter creates a new reporter
func NewReporter(logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{logger: logger, now: time.Now}
}

// Build computes the descriptive views of ds that accompany report:
// monthly revenue totals and margin means, average revenue by region in
// ascending order, total profit by region, the distribution of the
// analyzed measure per group, and the correlation of all measures.
func (r *Reporter) Build(ctx context.Context, runID string, ds *dataset.Dataset, report *analysis.Report) (*Bundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if report == nil {
		return nil, fmt.Errorf("no analysis report to build from")
	}

	b := &Bundle{
		RunID:         runID,
		GeneratedAt:   r.now().UTC(),
		Records:       ds.Len(),
		QualityIssues: len(ds.QualityIssues()),
		Analysis:      report,
	}

	var err error
	if b.RevenueTrend, err = MonthlyTrend(ds, analysis.FieldRevenue, AggSum); err != nil {
		return nil, fmt.Errorf("revenue trend: %w", err)
	}
	if b.MarginTrend, err = MonthlyTrend(ds, analysis.FieldProfitMargin, AggMean); err != nil {
		return nil, fmt.Errorf("margin trend: %w", err)
	}

	avgRevenue, err := GroupAggregate(ds, analysis.FieldRegion, analysis.FieldRevenue, AggMean)
	if err != nil {
		return nil, fmt.Errorf("region revenue: %w", err)
	}
	b.RegionRevenue = SortByValue(avgRevenue)
	if b.RegionProfit, err = GroupAggregate(ds, analysis.FieldRegion, analysis.FieldProfit, AggSum); err != nil {
		return nil, fmt.Errorf("region profit: %w", err)
	}

	if b.Distribution, err = GroupDistribution(ds, report.Key, report.Measure); err != nil {
		return nil, fmt.Errorf("distribution: %w", err)
	}
	if b.Correlation, err = CorrelationMatrix(ds, DefaultCorrelationFields); err != nil {
		return nil, fmt.Errorf("correlation: %w", err)
	}

	r.logger.DebugContext(ctx, "Report bundle built",
		slog.String("run_id", runID),
		slog.Int("months", len(b.RevenueTrend)),
		slog.Int("groups", len(b.Distribution)))
	return b, nil
}
