package pipeline

import (
	"log/slog"

	"finpulse/internal/analysis"
	"finpulse/internal/exporter"
	"finpulse/internal/infrastructure"
	"finpulse/internal/reporting"
)

// NewGenerateRegistry registers synthesize, export, analyze and report
func NewGenerateRegistry(settings *Settings, metrics *infrastructure.RunMetrics, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return register(
		NewSynthesizeStep(settings, metrics, infrastructure.WithComponent(logger, "synthesizer")),
		NewExportStep(exporter.NewExporter(settings.BOM, infrastructure.WithComponent(logger, "exporter")), settings),
		newAnalyzeStep(settings, settings.AnalyzeExtended, metrics, logger),
		NewReportStep(reporting.NewReporter(infrastructure.WithComponent(logger, "reporting")), settings, settings.AnalyzeExtended),
	)
}

// NewAnalyzeRegistry registers load, analyze and report for an existing
// dataset CSV
func NewAnalyzeRegistry(settings *Settings, input string, metrics *infrastructure.RunMetrics, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return register(
		NewLoadStep(input, infrastructure.WithComponent(logger, "loader")),
		newAnalyzeStep(settings, false, metrics, logger),
		NewReportStep(reporting.NewReporter(infrastructure.WithComponent(logger, "reporting")), settings, false),
	)
}

func newAnalyzeStep(settings *Settings, extended bool, metrics *infrastructure.RunMetrics, logger *slog.Logger) *AnalyzeStep {
	analyzer := analysis.NewAnalyzer(settings.Analysis, infrastructure.WithComponent(logger, "analysis"))
	return NewAnalyzeStep(analyzer, settings.Key, settings.Measure, extended, metrics)
}

func register(steps ...Step) (*Registry, error) {
	registry := NewRegistry()
	for _, step := range steps {
		if err := registry.Register(step); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
