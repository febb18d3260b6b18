package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "finpulse/internal/errors"
)

// EnvPrefix namespaces every environment override, e.g. FINPULSE_SYNTHESIS_SEED
const EnvPrefix = "FINPULSE"

// DateLayout is the calendar-date form accepted for date settings
const DateLayout = "2006-01-02"

// Config represents the complete application configuration
type Config struct {
	Synthesis SynthesisConfig `yaml:"synthesis" split_words:"true"`
	Periods   PeriodsConfig   `yaml:"periods" split_words:"true"`
	Analysis  AnalysisConfig  `yaml:"analysis" split_words:"true"`
	Output    OutputConfig    `yaml:"output" split_words:"true"`
	Logging   LoggingConfig   `yaml:"logging" split_words:"true"`
	Telemetry TelemetryConfig `yaml:"telemetry" split_words:"true"`
}

// SynthesisConfig describes the single-period dataset
type SynthesisConfig struct {
	RecordCount int      `yaml:"record_count" split_words:"true" validate:"gt=0"`
	StartDate   string   `yaml:"start_date" split_words:"true" validate:"required,datetime=2006-01-02"`
	EndDate     string   `yaml:"end_date" split_words:"true" validate:"required,datetime=2006-01-02"`
	Regions     []string `yaml:"regions" split_words:"true" validate:"min=1,dive,required"`
	Products    []string `yaml:"products" split_words:"true" validate:"min=1,dive,required"`
	RevenueMin  float64  `yaml:"revenue_min" split_words:"true" validate:"gte=0"`
	RevenueMax  float64  `yaml:"revenue_max" split_words:"true" validate:"gtfield=RevenueMin"`
	CostMin     float64  `yaml:"cost_min" split_words:"true" validate:"gte=0"`
	CostMax     float64  `yaml:"cost_max" split_words:"true" validate:"gtfield=CostMin"`
	Seed        int64    `yaml:"seed" split_words:"true"`
	Names       string   `yaml:"names" split_words:"true" validate:"oneof=faker sequence"`
}

// PeriodsConfig describes the multi-year extension, one seeded period per year
type PeriodsConfig struct {
	Enabled          bool `yaml:"enabled" split_words:"true"`
	FirstYear        int  `yaml:"first_year" split_words:"true" validate:"gte=1,lte=9999"`
	Count            int  `yaml:"count" split_words:"true" validate:"gte=1,lte=100"`
	RecordsPerPeriod int  `yaml:"records_per_period" split_words:"true" validate:"gt=0"`
	MaxConcurrency   int  `yaml:"max_concurrency" split_words:"true" validate:"gte=1"`
}

// AnalysisConfig selects the group comparison to run
type AnalysisConfig struct {
	GroupBy        string  `yaml:"group_by" split_words:"true" validate:"oneof=region product salesperson year"`
	Measure        string  `yaml:"measure" split_words:"true" validate:"oneof=revenue cost profit profit_margin"`
	Alpha          float64 `yaml:"alpha" split_words:"true" validate:"gt=0,lt=1"`
	MaxConcurrency int     `yaml:"max_concurrency" split_words:"true" validate:"gte=1"`
	Dataset        string  `yaml:"dataset" split_words:"true" validate:"oneof=base extended"`
}

// OutputConfig names the artifacts written by a run. File names are
// relative to Dir unless absolute.
type OutputConfig struct {
	Dir          string   `yaml:"dir" split_words:"true" validate:"required"`
	DatasetFile  string   `yaml:"dataset_file" split_words:"true" validate:"required"`
	ExtendedFile string   `yaml:"extended_file" split_words:"true" validate:"required"`
	Formats      []string `yaml:"formats" split_words:"true" validate:"min=1,dive,oneof=csv xlsx"`
	ReportJSON   string   `yaml:"report_json" split_words:"true" validate:"required"`
	ReportXLSX   string   `yaml:"report_xlsx" split_words:"true"`
	Summary      string   `yaml:"summary" split_words:"true" validate:"required"`
	MetricsFile  string   `yaml:"metrics_file" split_words:"true"`
	BOM          bool     `yaml:"bom" split_words:"true"`
	SplitPeriods bool     `yaml:"split_periods" split_words:"true"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" split_words:"true" validate:"oneof=debug info warn error"`
	Format   string `yaml:"format" split_words:"true" validate:"oneof=json text"`
	Output   string `yaml:"output" split_words:"true" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" split_words:"true"`
}

// TelemetryConfig controls tracing and metrics. Nothing is exported over
// the network: traces go to a file or stdout and metrics to a textfile.
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name" split_words:"true" validate:"required"`
	TraceExporter  string `yaml:"trace_exporter" split_words:"true" validate:"oneof=none stdout file"`
	TraceFile      string `yaml:"trace_file" split_words:"true"`
	MetricsEnabled bool   `yaml:"metrics_enabled" split_words:"true"`
}

// Load builds the configuration from defaults, an optional YAML file and
// FINPULSE_* environment variables, in increasing order of precedence.
// An empty path searches the usual locations and falls back to defaults
// when no file is found; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = getConfigFilePath()
	} else if _, err := os.Stat(path); err != nil {
		return nil, apperrors.NewConfigError(fmt.Sprintf("config file %s", path), err)
	}

	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, apperrors.NewConfigError("failed to load config from file", err).
				WithContext("path", path)
		}
	}

	// Only variables that are set override, e.g. FINPULSE_SYNTHESIS_RECORD_COUNT
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to load config from env", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile decodes YAML on top of cfg; keys absent from the file keep their value
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		DefaultConfigFile,
		"configs/" + DefaultConfigFile,
		"../configs/" + DefaultConfigFile,
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report yaml key names so errors match the file the user edits
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks struct tags and the rules that span several fields.
// All violations are returned together as a CONFIG error.
func (c *Config) Validate() error {
	var v apperrors.ValidationErrors

	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return apperrors.NewConfigError("config validation failed", err)
		}
		for _, fe := range fieldErrs {
			v.Add(fieldPath(fe), formatValidationError(fe))
		}
	}

	start, startErr := time.Parse(DateLayout, c.Synthesis.StartDate)
	end, endErr := time.Parse(DateLayout, c.Synthesis.EndDate)
	if startErr == nil && endErr == nil && end.Before(start) {
		v.Add("synthesis.end_date", fmt.Sprintf("%s is before start_date %s", c.Synthesis.EndDate, c.Synthesis.StartDate))
	}

	// gtfield and gte let +Inf through
	for _, b := range []struct {
		field string
		value float64
	}{
		{"synthesis.revenue_min", c.Synthesis.RevenueMin},
		{"synthesis.revenue_max", c.Synthesis.RevenueMax},
		{"synthesis.cost_min", c.Synthesis.CostMin},
		{"synthesis.cost_max", c.Synthesis.CostMax},
	} {
		if math.IsNaN(b.value) || math.IsInf(b.value, 0) {
			v.Add(b.field, fmt.Sprintf("must be a finite number, got %v", b.value))
		}
	}

	if c.Analysis.Dataset == "extended" && !c.Periods.Enabled {
		v.Add("analysis.dataset", "extended dataset requires periods.enabled")
	}
	if c.Telemetry.TraceExporter == "file" && c.Telemetry.TraceFile == "" {
		v.Add("telemetry.trace_file", "required when trace_exporter is file")
	}
	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		v.Add("logging.file_path", "required when output writes to a file")
	}

	return v.AsConfigError("config validation failed")
}

// fieldPath turns "Config.synthesis.record_count" into "synthesis.record_count"
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lt":
		return fmt.Sprintf("must be less than %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "min":
		return fmt.Sprintf("must have at least %s entries", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %v", fe.Param(), fe.Value())
	case "gtfield":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "datetime":
		return fmt.Sprintf("must be a date in %s form, got %v", fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// Start returns the parsed synthesis start date
func (s SynthesisConfig) Start() time.Time {
	t, _ := time.Parse(DateLayout, s.StartDate)
	return t
}

// End returns the parsed synthesis end date
func (s SynthesisConfig) End() time.Time {
	t, _ := time.Parse(DateLayout, s.EndDate)
	return t
}

// Default returns the configuration of the financial dashboard notebook
func Default() *Config {
	return &Config{
		Synthesis: SynthesisConfig{
			RecordCount: 500,
			StartDate:   "2023-01-01",
			EndDate:     "2023-12-31",
			Regions:     []string{"North", "South", "East", "West"},
			Products:    []string{"Product A", "Product B", "Product C", "Product D"},
			RevenueMin:  500,
			RevenueMax:  5000,
			CostMin:     300,
			CostMax:     4000,
			Seed:        42,
			Names:       "faker",
		},
		Periods: PeriodsConfig{
			Enabled:          true,
			FirstYear:        2020,
			Count:            3,
			RecordsPerPeriod: 500,
			MaxConcurrency:   4,
		},
		Analysis: AnalysisConfig{
			GroupBy:        "region",
			Measure:        "revenue",
			Alpha:          0.05,
			MaxConcurrency: 4,
			Dataset:        "extended",
		},
		Output: OutputConfig{
			Dir:          "output",
			DatasetFile:  "financial_dashboard_data.csv",
			ExtendedFile: "financial_dashboard_data_extended.csv",
			Formats:      []string{"csv", "xlsx"},
			ReportJSON:   "anova_report.json",
			ReportXLSX:   "analysis_report.xlsx",
			Summary:      "analysis_summary.txt",
			MetricsFile:  "metrics.prom",
			BOM:          false,
			SplitPeriods: false,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/finpulse.log",
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "finpulse",
			TraceExporter:  "none",
			TraceFile:      "traces.json",
			MetricsEnabled: true,
		},
	}
}
