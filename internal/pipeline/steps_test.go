package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finpulse/internal/analysis"
	"finpulse/internal/config"
	"finpulse/internal/dataset"
	apperrors "finpulse/internal/errors"
	"finpulse/internal/exporter"
	"finpulse/internal/infrastructure"
)

func smallConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Output.Dir = t.TempDir()
	cfg.Synthesis.RecordCount = 120
	cfg.Synthesis.Names = "sequence"
	cfg.Periods.FirstYear = 2021
	cfg.Periods.Count = 2
	cfg.Periods.RecordsPerPeriod = 80
	return cfg
}

func TestSettingsFromConfig_Defaults(t *testing.T) {
	cfg := config.Default()
	s, err := SettingsFromConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, dataset.DefaultParams(), s.Params)
	assert.IsType(t, dataset.FakerNames{}, s.Names)
	assert.Equal(t, analysis.FieldRegion, s.Key)
	assert.Equal(t, analysis.FieldRevenue, s.Measure)
	assert.Equal(t, 0.05, s.Analysis.Alpha)
	assert.True(t, s.AnalyzeExtended)

	require.Len(t, s.Periods, 3)
	assert.Equal(t, "2020", s.Periods[0].Label)
	assert.Equal(t, 500, s.PeriodTemplate.RecordCount)
	assert.Equal(t, 4, s.PeriodConcurrency)

	assert.Equal(t, filepath.Join("output", "financial_dashboard_data.csv"), s.Dataset.CSV)
	assert.Equal(t, filepath.Join("output", "financial_dashboard_data.xlsx"), s.Dataset.XLSX)
	assert.Equal(t, filepath.Join("output", "financial_dashboard_data_extended.csv"), s.Extended.CSV)
	assert.Equal(t, filepath.Join("output", "anova_report.json"), s.ReportJSON)
	assert.Equal(t, filepath.Join("output", "analysis_report.xlsx"), s.ReportXLSX)
	assert.Equal(t, filepath.Join("output", "analysis_summary.txt"), s.Summary)
}

func TestSettingsFromConfig_PeriodsDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Periods.Enabled = false
	cfg.Analysis.Dataset = "base"
	cfg.Output.Formats = []string{"csv"}

	s, err := SettingsFromConfig(cfg)
	require.NoError(t, err)
	assert.Empty(t, s.Periods)
	assert.False(t, s.AnalyzeExtended)
	assert.Empty(t, s.Dataset.XLSX)
	assert.Equal(t, exporter.Target{}, s.Extended)
}

func TestSettingsFromConfig_Invalid(t *testing.T) {
	cfg := config.Default()
	cfg.Synthesis.RecordCount = 0

	_, err := SettingsFromConfig(cfg)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))

	_, err = SettingsFromConfig(nil)
	assert.Error(t, err)
}

func TestGeneratePipeline_EndToEnd(t *testing.T) {
	cfg := smallConfig(t)
	cfg.Output.SplitPeriods = true
	settings, err := SettingsFromConfig(cfg)
	require.NoError(t, err)

	providers, err := infrastructure.InitializeOTel(&infrastructure.OTelConfig{
		ServiceName:   "finpulse-test",
		TraceExporter: "none",
		EnableMetrics: true,
	}, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = providers.Shutdown(context.Background()) })

	registry, err := NewGenerateRegistry(settings, providers.Metrics, quietLogger())
	require.NoError(t, err)
	manager := NewManager(registry, NewRunTracer(providers), Options{}, quietLogger())

	state, err := manager.Run(context.Background(), "e2e")
	require.NoError(t, err)

	ids := make([]string, 0, 4)
	for _, s := range state.Steps() {
		ids = append(ids, s.ID)
		assert.Equal(t, StepStatusCompleted, s.Status, s.ID)
	}
	assert.Equal(t, []string{StepIDSynthesize, StepIDExport, StepIDAnalyze, StepIDReport}, ids)
	assert.Contains(t, state.Step(StepIDAnalyze).Snapshot().Metadata, "analysis_duration")

	require.NotNil(t, state.Dataset())
	require.NotNil(t, state.Extended())
	assert.Equal(t, 120, state.Dataset().Len())
	assert.Equal(t, 160, state.Extended().Len())

	report := state.Report()
	require.NotNil(t, report)
	assert.Equal(t, 160, report.Records)
	assert.Equal(t, []string{"East", "North", "South", "West"}, report.GroupKeys())

	artifacts := state.Artifacts()
	for _, key := range []string{
		ArtifactDatasetCSV, ArtifactDatasetXLSX, ArtifactExtendedCSV, ArtifactExtendedXLSX,
		ArtifactReportJSON, ArtifactReportXLSX, ArtifactSummary,
		"financial_dashboard_data_extended_2021", "financial_dashboard_data_extended_2022",
	} {
		require.Contains(t, artifacts, key)
		assert.FileExists(t, artifacts[key])
	}

	// The extended CSV read back equals what was synthesized
	loaded, err := exporter.ReadDataset(artifacts[ArtifactExtendedCSV])
	require.NoError(t, err)
	assert.True(t, loaded.Equal(state.Extended()))

	raw, err := os.ReadFile(artifacts[ArtifactReportJSON])
	require.NoError(t, err)
	var doc struct {
		RunID     string            `json:"run_id"`
		Records   int               `json:"records"`
		Artifacts map[string]string `json:"artifacts"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "e2e", doc.RunID)
	assert.Equal(t, 160, doc.Records)
	assert.Equal(t, artifacts[ArtifactSummary], doc.Artifacts[ArtifactSummary])

	metricsPath := filepath.Join(cfg.Output.Dir, "metrics.prom")
	require.NoError(t, providers.WriteMetrics(metricsPath))
	metrics, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	text := string(metrics)
	assert.Contains(t, text, "finpulse_steps")
	assert.Contains(t, text, `step="report"`)
	assert.Contains(t, text, "finpulse_records_synthesized")
	assert.Contains(t, text, `dataset="extended"`)
	assert.Contains(t, text, "finpulse_runs")
	assert.Contains(t, text, "finpulse_test_p_value")
}

func TestGeneratePipeline_Deterministic(t *testing.T) {
	run := func() *RunState {
		cfg := smallConfig(t)
		cfg.Output.Formats = []string{"csv"}
		cfg.Output.ReportXLSX = ""
		settings, err := SettingsFromConfig(cfg)
		require.NoError(t, err)
		registry, err := NewGenerateRegistry(settings, nil, quietLogger())
		require.NoError(t, err)
		state, err := NewManager(registry, nil, Options{}, quietLogger()).Run(context.Background(), "")
		require.NoError(t, err)
		return state
	}

	a, b := run(), run()
	assert.True(t, a.Dataset().Equal(b.Dataset()))
	assert.True(t, a.Extended().Equal(b.Extended()))
	assert.Equal(t, a.Report().ANOVA, b.Report().ANOVA)
	assert.NotContains(t, a.Artifacts(), ArtifactReportXLSX)
	assert.NotContains(t, a.Artifacts(), ArtifactDatasetXLSX)
}

func TestAnalyzePipeline(t *testing.T) {
	cfg := smallConfig(t)
	settings, err := SettingsFromConfig(cfg)
	require.NoError(t, err)

	ds, err := dataset.Synthesize(settings.Params, settings.Names)
	require.NoError(t, err)
	input := filepath.Join(t.TempDir(), "input.csv")
	require.NoError(t, exporter.NewCSVWriter(false, quietLogger()).WriteDataset(input, ds))

	registry, err := NewAnalyzeRegistry(settings, input, nil, quietLogger())
	require.NoError(t, err)
	state, err := NewManager(registry, nil, Options{}, quietLogger()).Run(context.Background(), "analyze")
	require.NoError(t, err)

	assert.Equal(t, 120, state.Report().Records)
	assert.Nil(t, state.Extended())
	assert.FileExists(t, settings.ReportJSON)
	assert.FileExists(t, settings.Summary)
	assert.NotContains(t, state.Artifacts(), ArtifactDatasetCSV)
}

func TestAnalyzePipeline_MissingInput(t *testing.T) {
	cfg := smallConfig(t)
	settings, err := SettingsFromConfig(cfg)
	require.NoError(t, err)

	registry, err := NewAnalyzeRegistry(settings, filepath.Join(t.TempDir(), "absent.csv"), nil, quietLogger())
	require.NoError(t, err)
	state, err := NewManager(registry, nil, Options{}, quietLogger()).Run(context.Background(), "")
	require.Error(t, err)

	assert.Equal(t, StepIDLoad, FailedStep(err))
	assert.Equal(t, ErrorTypeValidation, GetErrorType(err))
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeStorage))
	assert.Equal(t, StepStatusSkipped, state.Step(StepIDAnalyze).Status())
	assert.Equal(t, StepStatusSkipped, state.Step(StepIDReport).Status())
	assert.NoFileExists(t, settings.ReportJSON)
}

func TestAnalyzeStep_RequiresDataset(t *testing.T) {
	step := NewAnalyzeStep(analysis.NewAnalyzer(analysis.DefaultOptions(), quietLogger()),
		analysis.FieldRegion, analysis.FieldRevenue, true, nil)
	state := NewRunState("x")

	assert.EqualError(t, step.Validate(state), "no extended dataset to analyze")
	state.SetExtended(dataset.NewDataset(nil))
	assert.NoError(t, step.Validate(state))
}
