package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Paths contains every file a pipeline run reads or writes.
// This is the single source of truth for artifact locations.
type Paths struct {
	OutputDir string
	LogsDir   string

	DatasetCSV   string
	DatasetXLSX  string
	ExtendedCSV  string
	ExtendedXLSX string

	ReportJSON  string
	ReportXLSX  string
	SummaryTXT  string
	MetricsFile string
	TraceFile   string
	LogFile     string
}

// Paths resolves the configured artifact names against the output directory.
// Optional artifacts left empty in the configuration stay empty here.
func (c *Config) Paths() *Paths {
	dir := c.Output.Dir
	resolve := func(name string) string {
		if name == "" || filepath.IsAbs(name) {
			return name
		}
		return filepath.Join(dir, name)
	}

	logFile := c.Logging.FilePath
	if logFile != "" && !filepath.IsAbs(logFile) {
		logFile = filepath.Clean(logFile)
	}

	p := &Paths{
		OutputDir:   dir,
		DatasetCSV:  resolve(c.Output.DatasetFile),
		ExtendedCSV: resolve(c.Output.ExtendedFile),
		ReportJSON:  resolve(c.Output.ReportJSON),
		ReportXLSX:  resolve(c.Output.ReportXLSX),
		SummaryTXT:  resolve(c.Output.Summary),
		LogFile:     logFile,
	}
	if logFile != "" {
		p.LogsDir = filepath.Dir(logFile)
	}
	if c.HasFormat("xlsx") {
		p.DatasetXLSX = withExt(p.DatasetCSV, ".xlsx")
		p.ExtendedXLSX = withExt(p.ExtendedCSV, ".xlsx")
	}
	if c.Telemetry.MetricsEnabled {
		p.MetricsFile = resolve(c.Output.MetricsFile)
	}
	if c.Telemetry.TraceExporter == "file" {
		p.TraceFile = resolve(c.Telemetry.TraceFile)
	}
	return p
}

// HasFormat reports whether the dataset is exported in the given format
func (c *Config) HasFormat(format string) bool {
	for _, f := range c.Output.Formats {
		if strings.EqualFold(f, format) {
			return true
		}
	}
	return false
}

// EnsureDirectories creates the output and log directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{p.OutputDir}
	if p.LogsDir != "" {
		directories = append(directories, p.LogsDir)
	}
	for _, file := range []string{p.MetricsFile, p.TraceFile, p.ReportXLSX} {
		if file != "" {
			directories = append(directories, filepath.Dir(file))
		}
	}

	logger := slog.Default()
	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		logger.Debug("Ensured directory exists", slog.String("directory", dir))
	}
	return nil
}

// LogPathResolution logs the resolved artifact paths
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Path resolution",
		slog.Group("paths",
			slog.String("output_dir", p.OutputDir),
			slog.String("dataset_csv", p.DatasetCSV),
			slog.String("extended_csv", p.ExtendedCSV),
			slog.String("report_json", p.ReportJSON),
			slog.String("report_xlsx", p.ReportXLSX),
			slog.String("summary", p.SummaryTXT),
			slog.String("metrics", p.MetricsFile),
		),
	)
}

func withExt(path, ext string) string {
	if path == "" {
		return ""
	}
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}
