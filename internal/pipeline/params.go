package pipeline

import (
	"fmt"

	"finpulse/internal/analysis"
	"finpulse/internal/config"
	"finpulse/internal/dataset"
	apperrors "finpulse/internal/errors"
	"finpulse/internal/exporter"
)

// Settings is the configuration of a run in the types the steps consume
type Settings struct {
	Params dataset.Params
	Names  dataset.NameProvider

	// Periods is empty when the multi-period extension is disabled.
	// PeriodTemplate carries the per-period record count.
	Periods           []dataset.Period
	PeriodTemplate    dataset.Params
	PeriodConcurrency int

	Key             analysis.Field
	Measure         analysis.Field
	Analysis        analysis.Options
	AnalyzeExtended bool

	Dataset      exporter.Target
	Extended     exporter.Target
	SplitPeriods bool
	BOM          bool

	ReportJSON string
	ReportXLSX string
	Summary    string
}

// SettingsFromConfig validates cfg and maps it onto Settings
func SettingsFromConfig(cfg *config.Config) (*Settings, error) {
	if cfg == nil {
		return nil, apperrors.NewConfigError("no configuration", nil)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	names, err := dataset.NameProviderFor(cfg.Synthesis.Names)
	if err != nil {
		return nil, apperrors.NewConfigError("synthesis.names", err)
	}
	key, err := analysis.ParseField(cfg.Analysis.GroupBy)
	if err != nil {
		return nil, apperrors.NewConfigError("analysis.group_by", err)
	}
	measure, err := analysis.ParseField(cfg.Analysis.Measure)
	if err != nil {
		return nil, apperrors.NewConfigError("analysis.measure", err)
	}

	syn := cfg.Synthesis
	params := dataset.Params{
		RecordCount: syn.RecordCount,
		Dates:       dataset.DateRange{Start: syn.Start(), End: syn.End()},
		Regions:     append([]string(nil), syn.Regions...),
		Products:    append([]string(nil), syn.Products...),
		Revenue:     dataset.Range{Low: syn.RevenueMin, High: syn.RevenueMax},
		Cost:        dataset.Range{Low: syn.CostMin, High: syn.CostMax},
		Seed:        syn.Seed,
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("synthesis parameters: %w", err)
	}

	paths := cfg.Paths()
	s := &Settings{
		Params:  params,
		Names:   names,
		Key:     key,
		Measure: measure,
		Analysis: analysis.Options{
			Alpha:          cfg.Analysis.Alpha,
			MaxConcurrency: cfg.Analysis.MaxConcurrency,
		},
		AnalyzeExtended: cfg.Analysis.Dataset == "extended",
		BOM:             cfg.Output.BOM,
		ReportJSON:      paths.ReportJSON,
		ReportXLSX:      paths.ReportXLSX,
		Summary:         paths.SummaryTXT,
	}

	if cfg.HasFormat("csv") {
		s.Dataset.CSV = paths.DatasetCSV
	}
	s.Dataset.XLSX = paths.DatasetXLSX

	if cfg.Periods.Enabled {
		s.Periods = dataset.YearlyPeriods(cfg.Periods.FirstYear, cfg.Periods.Count)
		s.PeriodTemplate = params
		s.PeriodTemplate.RecordCount = cfg.Periods.RecordsPerPeriod
		s.PeriodConcurrency = cfg.Periods.MaxConcurrency
		s.SplitPeriods = cfg.Output.SplitPeriods

		// The extended CSV is always written: it is the input of the analyze command
		s.Extended.CSV = paths.ExtendedCSV
		s.Extended.XLSX = paths.ExtendedXLSX
	}
	return s, nil
}
