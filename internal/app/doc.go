// Package app wires the process-wide components of finpulse and runs one
// pipeline.
//
// # Initialization Flow
//
//  1. Load configuration from defaults, a YAML file and FINPULSE_* variables
//  2. Validate it and map it onto pipeline settings
//  3. Create the output and log directories
//  4. Initialize logging, tracing and metrics
//
// Nothing runs before validation succeeds, so an invalid configuration never
// produces partial output.
//
// # Usage
//
//	application, err := app.NewApplication(configPath)
//	if err != nil {
//	    return err
//	}
//	defer application.Stop(ctx)
//	state, err := application.Generate(ctx)
//
// Stop writes the Prometheus metrics textfile and flushes spans; call it
// whether or not the run succeeded.
//
// # Error Handling
//
// All errors are returned to the caller. The package never calls os.Exit,
// leaving exit codes to the commands.
package app
