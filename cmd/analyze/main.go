// Command analyze runs the group comparison and writes the reports for an
// existing dataset CSV, such as one exported by finpulse.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"finpulse/internal/app"
)

const (
	exitOK      = 0
	exitFailed  = 1
	exitUsage   = 2
	exitStartup = 3
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("analyze", flag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.String("config", "", "path to config.yaml (defaults to config.yaml or configs/config.yaml)")
	input := flags.String("input", "", "dataset CSV to analyze (defaults to the configured dataset file)")
	if err := flags.Parse(args); err != nil {
		return exitUsage
	}

	application, err := app.NewApplication(*configPath)
	if err != nil {
		slog.Error("Failed to start", "error", err)
		fmt.Fprintf(stderr, "analyze: %v\n", err)
		return exitStartup
	}

	path := *input
	if path == "" {
		path = application.Paths.DatasetCSV
	}

	state, runErr := application.Analyze(ctx, path)
	if stopErr := application.Stop(context.Background()); stopErr != nil {
		fmt.Fprintf(stderr, "analyze: %v\n", stopErr)
	}
	if state != nil {
		if err := app.PrintResult(stdout, state); err != nil {
			fmt.Fprintf(stderr, "analyze: %v\n", err)
		}
	}
	if runErr != nil {
		fmt.Fprintf(stderr, "analyze: %v\n", runErr)
		return exitFailed
	}
	return exitOK
}
