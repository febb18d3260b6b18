// Package config provides centralized configuration management for finpulse.
// It loads configuration from multiple sources, validates it, and resolves
// the artifact paths of a pipeline run.
//
// # Configuration Sources
//
// Configuration is layered in the following order of precedence:
//
//  1. Environment variables (highest priority)
//  2. YAML configuration file
//  3. Default values (lowest priority)
//
// Defaults reproduce the financial dashboard dataset: 500 records over 2023,
// four regions and four products, revenue in [500, 5000), cost in [300, 4000),
// seed 42, plus the three-year extension starting in 2020.
//
// # Environment Variables
//
// All environment variables follow the pattern FINPULSE_<SECTION>_<KEY>:
//
//	FINPULSE_SYNTHESIS_SEED=7
//	FINPULSE_SYNTHESIS_REGIONS=North,South
//	FINPULSE_ANALYSIS_GROUP_BY=product
//	FINPULSE_LOGGING_LEVEL=debug
//	FINPULSE_TELEMETRY_TRACE_EXPORTER=file
//
// # Validation
//
// Struct tags are checked with go-playground/validator, followed by the
// rules spanning several fields (date order, extended dataset requires
// periods, file outputs require a path). Every violation is reported in a
// single CONFIG error whose context lists the failing yaml keys.
//
// # Usage
//
//	cfg, err := config.Load("config.yaml")
//	if err != nil {
//	    slog.Error("Failed to load configuration", "error", err)
//	    os.Exit(1)
//	}
//	paths := cfg.Paths()
package config
