package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"finpulse/internal/config"
	"finpulse/internal/infrastructure"
	"finpulse/internal/pipeline"
	"finpulse/internal/reporting"
	"finpulse/internal/validation"
)

// Application wires configuration, logging, telemetry and the pipeline
// for one process
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Settings      *pipeline.Settings
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Options       pipeline.Options

	runtime *infrastructure.RuntimeMetrics
	started time.Time
}

// NewApplication loads the configuration at configPath (empty searches the
// default locations) and initializes every process-wide component
func NewApplication(configPath string) (*Application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return New(cfg)
}

// New initializes an application from an already loaded configuration
func New(cfg *config.Config) (*Application, error) {
	started := time.Now()

	settings, err := pipeline.SettingsFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	paths := cfg.Paths()
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion))
	paths.LogPathResolution(logger)
	if err := validation.NewFileValidator(logger).ValidateOutputDirectory(paths.OutputDir); err != nil {
		return nil, err
	}

	providers, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry, paths), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	runtime, err := infrastructure.NewRuntimeMetrics(providers.Meter)
	if err != nil {
		_ = providers.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to create runtime metrics: %w", err)
	}

	return &Application{
		Config:        cfg,
		Paths:         paths,
		Settings:      settings,
		Logger:        logger,
		OTelProviders: providers,
		runtime:       runtime,
		started:       started,
	}, nil
}

// Generate synthesizes, exports, analyzes and reports
func (a *Application) Generate(ctx context.Context) (*pipeline.RunState, error) {
	registry, err := pipeline.NewGenerateRegistry(a.Settings, a.OTelProviders.Metrics, a.Logger)
	if err != nil {
		return nil, err
	}
	return a.run(ctx, registry)
}

// Analyze runs the comparison and reports on an existing dataset CSV
func (a *Application) Analyze(ctx context.Context, input string) (*pipeline.RunState, error) {
	registry, err := pipeline.NewAnalyzeRegistry(a.Settings, input, a.OTelProviders.Metrics, a.Logger)
	if err != nil {
		return nil, err
	}
	return a.run(ctx, registry)
}

func (a *Application) run(ctx context.Context, registry *pipeline.Registry) (*pipeline.RunState, error) {
	manager := pipeline.NewManager(registry, pipeline.NewRunTracer(a.OTelProviders), a.Options, a.Logger)
	return manager.Run(ctx, "")
}

// Stop records runtime usage, writes the metrics textfile and flushes
// telemetry. It is safe to call after a failed run.
func (a *Application) Stop(ctx context.Context) error {
	stats := a.runtime.Collect(ctx, a.started)
	a.Logger.InfoContext(ctx, "Runtime usage",
		slog.Int64("goroutines", stats.Goroutines),
		slog.Int64("heap_in_use_bytes", stats.HeapInUse),
		slog.Int64("total_alloc_bytes", stats.TotalAlloc),
		slog.Any("gc_count", stats.GCCount),
		slog.Duration("uptime", stats.ProcessUptime))

	var firstErr error
	if err := a.OTelProviders.WriteMetrics(a.Paths.MetricsFile); err != nil {
		a.Logger.ErrorContext(ctx, "Failed to write metrics", slog.String("error", err.Error()))
		firstErr = err
	}
	if err := a.OTelProviders.Shutdown(ctx); err != nil {
		a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		if firstErr == nil {
			firstErr = err
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	if err := infrastructure.CloseLogFile(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// PrintResult writes the run outcome for a terminal: the step table, the
// plain-text summary when the run got that far, and the files written.
func PrintResult(w io.Writer, state *pipeline.RunState) error {
	if _, err := fmt.Fprintf(w, "Run %s %s in %s\n", state.ID, state.Status(), state.Duration().Round(time.Millisecond)); err != nil {
		return err
	}
	for _, step := range state.Steps() {
		line := fmt.Sprintf("  %-10s %-9s %s", step.ID, step.Status, step.Duration.Round(time.Millisecond))
		if step.Error != "" {
			line += "  " + step.Error
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	if b := state.Bundle(); b != nil {
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
		if err := reporting.RenderSummary(w, b); err != nil {
			return err
		}
	}

	artifacts := state.Artifacts()
	if len(artifacts) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "\nFiles:"); err != nil {
		return err
	}
	for _, key := range state.ArtifactKeys() {
		if _, err := fmt.Fprintf(w, "  %s\n", artifacts[key]); err != nil {
			return err
		}
	}
	return nil
}
