package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"finpulse/internal/analysis"
	"finpulse/internal/dataset"
	"finpulse/internal/exporter"
	"finpulse/internal/infrastructure"
	"finpulse/internal/reporting"
	"finpulse/internal/validation"
)

// Step identifiers
const (
	StepIDSynthesize = "synthesize"
	StepIDLoad       = "load"
	StepIDExport     = "export"
	StepIDAnalyze    = "analyze"
	StepIDReport     = "report"
)

// SynthesizeStep generates the single-period dataset and, when periods are
// configured, the multi-period extension.
type SynthesizeStep struct {
	BaseStep
	settings *Settings
	metrics  *infrastructure.RunMetrics
	logger   *slog.Logger
}

// NewSynthesizeStep creates the synthesis step
func NewSynthesizeStep(settings *Settings, metrics *infrastructure.RunMetrics, logger *slog.Logger) *SynthesizeStep {
	return &SynthesizeStep{
		BaseStep: NewBaseStep(StepIDSynthesize, "Synthesize dataset"),
		settings: settings,
		metrics:  metrics,
		logger:   logger,
	}
}

// Execute implements Step
func (s *SynthesizeStep) Execute(ctx context.Context, state *RunState) error {
	base, err := dataset.Synthesize(s.settings.Params, s.settings.Names)
	if err != nil {
		return err
	}
	state.SetDataset(base)
	s.record(ctx, state, "base", base)

	if len(s.settings.Periods) == 0 {
		return nil
	}

	extended, err := dataset.SynthesizePeriods(ctx, s.settings.Periods, s.settings.PeriodTemplate,
		s.settings.Names, s.settings.PeriodConcurrency)
	if err != nil {
		return fmt.Errorf("extended dataset: %w", err)
	}
	state.SetExtended(extended)
	s.record(ctx, state, "extended", extended)
	return nil
}

func (s *SynthesizeStep) record(ctx context.Context, state *RunState, kind string, ds *dataset.Dataset) {
	issues := ds.QualityIssues()
	if step := state.Step(s.ID()); step != nil {
		step.SetMetadata(kind+"_records", ds.Len())
		step.SetMetadata(kind+"_quality_issues", len(issues))
	}
	if s.metrics != nil {
		s.metrics.RecordsSynthesized.Add(ctx, int64(ds.Len()),
			metric.WithAttributes(attribute.String("dataset", kind)))
	}
	infrastructure.AddSpanEvent(ctx, "dataset.synthesized", map[string]interface{}{
		"dataset":        kind,
		"records":        ds.Len(),
		"quality_issues": len(issues),
	})
	s.logger.InfoContext(ctx, "dataset_synthesized",
		slog.String("dataset", kind),
		slog.Int("records", ds.Len()),
		slog.Int("quality_issues", len(issues)))
	for _, issue := range issues {
		s.logger.DebugContext(ctx, "data_quality_issue",
			slog.String("dataset", kind),
			slog.Int("index", issue.Index),
			slog.String("field", issue.Field),
			slog.String("reason", issue.Reason))
	}
}

// LoadStep reads a previously exported dataset CSV
type LoadStep struct {
	BaseStep
	path      string
	validator *validation.FileValidator
	logger    *slog.Logger
}

// NewLoadStep creates a step that loads path as the run's dataset
func NewLoadStep(path string, logger *slog.Logger) *LoadStep {
	return &LoadStep{
		BaseStep:  NewBaseStep(StepIDLoad, "Load dataset"),
		path:      path,
		validator: validation.NewFileValidator(logger),
		logger:    logger,
	}
}

// Validate implements Step
func (s *LoadStep) Validate(*RunState) error {
	if s.path == "" {
		return fmt.Errorf("no input file")
	}
	return s.validator.ValidateCSVFile(s.path)
}

// Execute implements Step
func (s *LoadStep) Execute(ctx context.Context, state *RunState) error {
	ds, err := exporter.ReadDataset(s.path)
	if err != nil {
		return err
	}
	state.SetDataset(ds)
	if step := state.Step(s.ID()); step != nil {
		step.SetMetadata("records", ds.Len())
	}
	s.logger.InfoContext(ctx, "dataset_loaded",
		slog.String("path", s.path),
		slog.Int("records", ds.Len()),
		slog.Int("quality_issues", len(ds.QualityIssues())))
	return nil
}

// ExportStep writes the synthesized datasets in every configured format
type ExportStep struct {
	BaseStep
	exporter *exporter.Exporter
	settings *Settings
}

// NewExportStep creates the export step
func NewExportStep(exp *exporter.Exporter, settings *Settings) *ExportStep {
	return &ExportStep{
		BaseStep: NewBaseStep(StepIDExport, "Export datasets"),
		exporter: exp,
		settings: settings,
	}
}

// Validate implements Step
func (s *ExportStep) Validate(state *RunState) error {
	if state.Dataset() == nil {
		return fmt.Errorf("no dataset to export")
	}
	if len(s.settings.Periods) > 0 && state.Extended() == nil {
		return fmt.Errorf("no extended dataset to export")
	}
	return nil
}

// Execute implements Step
func (s *ExportStep) Execute(ctx context.Context, state *RunState) error {
	if err := s.export(ctx, state, state.Dataset(), s.settings.Dataset,
		ArtifactDatasetCSV, ArtifactDatasetXLSX); err != nil {
		return err
	}
	if len(s.settings.Periods) == 0 {
		return nil
	}

	if err := s.export(ctx, state, state.Extended(), s.settings.Extended,
		ArtifactExtendedCSV, ArtifactExtendedXLSX); err != nil {
		return err
	}
	if !s.settings.SplitPeriods {
		return nil
	}

	written, err := s.exporter.ExportByYear(ctx, state.Extended(), s.settings.Extended.CSV)
	for _, path := range written {
		state.AddArtifact(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), path)
	}
	return err
}

func (s *ExportStep) export(ctx context.Context, state *RunState, ds *dataset.Dataset, target exporter.Target, csvKey, xlsxKey string) error {
	written, err := s.exporter.Export(ctx, ds, target)
	for _, path := range written {
		key := csvKey
		if path == target.XLSX {
			key = xlsxKey
		}
		state.AddArtifact(key, path)
		infrastructure.AddSpanEvent(ctx, "dataset.written", map[string]interface{}{
			"artifact": key,
			"path":     path,
			"records":  ds.Len(),
		})
	}
	return err
}

// AnalyzeStep runs the group comparison on the run's dataset
type AnalyzeStep struct {
	BaseStep
	analyzer *analysis.Analyzer
	key      analysis.Field
	measure  analysis.Field
	extended bool
	metrics  *infrastructure.RunMetrics
}

// NewAnalyzeStep creates the analysis step. When extended is set the
// multi-period dataset is analyzed instead of the single-period one.
func NewAnalyzeStep(analyzer *analysis.Analyzer, key, measure analysis.Field, extended bool, metrics *infrastructure.RunMetrics) *AnalyzeStep {
	return &AnalyzeStep{
		BaseStep: NewBaseStep(StepIDAnalyze, "Analyze groups"),
		analyzer: analyzer,
		key:      key,
		measure:  measure,
		extended: extended,
		metrics:  metrics,
	}
}

func (s *AnalyzeStep) input(state *RunState) *dataset.Dataset {
	if s.extended {
		return state.Extended()
	}
	return state.Dataset()
}

// Validate implements Step
func (s *AnalyzeStep) Validate(state *RunState) error {
	if s.input(state) == nil {
		if s.extended {
			return fmt.Errorf("no extended dataset to analyze")
		}
		return fmt.Errorf("no dataset to analyze")
	}
	return nil
}

// Execute implements Step
func (s *AnalyzeStep) Execute(ctx context.Context, state *RunState) error {
	report, err := s.analyzer.Analyze(ctx, s.input(state), s.key, s.measure)
	if err != nil {
		return err
	}
	state.SetReport(report)

	if step := state.Step(s.ID()); step != nil {
		step.SetMetadata("groups", len(report.Groups))
		step.SetMetadata("excluded", report.Excluded)
		step.SetMetadata("means_differ", report.Verdict.MeansDiffer)
		step.SetMetadata("analysis_duration", report.Duration.String())
	}

	attrs := map[string]interface{}{
		"key":          string(report.Key),
		"measure":      string(report.Measure),
		"groups":       len(report.Groups),
		"means_differ": report.Verdict.MeansDiffer,
	}
	if report.ANOVA.Computed() {
		attrs["anova.f"] = report.ANOVA.Result.Statistic
		attrs["anova.p_value"] = report.ANOVA.Result.PValue
	}
	infrastructure.SetSpanAttributes(ctx, attrs)
	s.recordMetrics(ctx, report)
	return nil
}

func (s *AnalyzeStep) recordMetrics(ctx context.Context, report *analysis.Report) {
	if s.metrics == nil {
		return
	}
	measure := attribute.String("measure", string(report.Measure))
	s.metrics.RecordsExcluded.Add(ctx, int64(report.Excluded), metric.WithAttributes(measure))
	s.metrics.AssumptionViolations.Add(ctx, int64(report.AssumptionViolations()), metric.WithAttributes(measure))

	for name, outcome := range map[string]analysis.TestOutcome{"levene": report.Levene, "anova": report.ANOVA} {
		if outcome.Computed() {
			s.metrics.TestPValue.Record(ctx, outcome.Result.PValue,
				metric.WithAttributes(attribute.String("test", name), measure))
		}
	}
}

// ReportStep builds the report bundle and writes it as JSON, a text
// summary and, when configured, an XLSX workbook.
type ReportStep struct {
	BaseStep
	reporter *reporting.Reporter
	settings *Settings
	extended bool
}

// NewReportStep creates the report step. extended selects the dataset the
// descriptive views are computed on and must match the analysis step.
func NewReportStep(reporter *reporting.Reporter, settings *Settings, extended bool) *ReportStep {
	return &ReportStep{
		BaseStep: NewBaseStep(StepIDReport, "Write reports"),
		reporter: reporter,
		settings: settings,
		extended: extended,
	}
}

func (s *ReportStep) input(state *RunState) *dataset.Dataset {
	if s.extended {
		return state.Extended()
	}
	return state.Dataset()
}

// Validate implements Step
func (s *ReportStep) Validate(state *RunState) error {
	if state.Report() == nil {
		return fmt.Errorf("no analysis report")
	}
	if s.input(state) == nil {
		return fmt.Errorf("no dataset to describe")
	}
	return nil
}

// Execute implements Step
func (s *ReportStep) Execute(ctx context.Context, state *RunState) error {
	bundle, err := s.reporter.Build(ctx, state.ID, s.input(state), state.Report())
	if err != nil {
		return err
	}

	outputs := []struct {
		key   string
		path  string
		write func(context.Context, string, *reporting.Bundle) error
	}{
		{ArtifactReportJSON, s.settings.ReportJSON, s.reporter.WriteJSON},
		{ArtifactSummary, s.settings.Summary, s.reporter.WriteSummary},
		{ArtifactReportXLSX, s.settings.ReportXLSX, s.reporter.WriteWorkbook},
	}

	// The bundle lists every artifact of the run, including the reports themselves
	for _, out := range outputs {
		if out.path != "" {
			state.AddArtifact(out.key, out.path)
		}
	}
	bundle.Artifacts = state.Artifacts()
	state.SetBundle(bundle)

	for _, out := range outputs {
		if out.path == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := out.write(ctx, out.path, bundle); err != nil {
			return fmt.Errorf("%s: %w", out.key, err)
		}
	}
	return nil
}
