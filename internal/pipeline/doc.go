// Package pipeline runs finpulse as an ordered list of steps over a shared
// RunState.
//
// The generate pipeline synthesizes the datasets, exports them, compares
// the configured measure across groups and writes the reports. The analyze
// pipeline replaces the first two steps with loading an existing CSV.
//
//	settings, err := pipeline.SettingsFromConfig(cfg)
//	registry, err := pipeline.NewGenerateRegistry(settings, providers.Metrics, logger)
//	manager := pipeline.NewManager(registry, pipeline.NewRunTracer(providers), pipeline.Options{}, logger)
//	state, err := manager.Run(ctx, "")
//
// Steps run one at a time. A step that fails validation or execution stops
// the run, the remaining steps are marked skipped and Run returns an
// *OperationError naming the step.
package pipeline
