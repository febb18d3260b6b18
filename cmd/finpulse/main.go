// Command finpulse synthesizes the financial dashboard dataset, compares
// the configured measure across groups and writes the reports.
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
	"finpulse/internal/config"
)

// Exit codes
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
	flags := flag.NewFlagSet(config.AppName, flag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.String("config", "", "path to config.yaml (defaults to config.yaml or configs/config.yaml)")
	version := flags.Bool("version", false, "print the version and exit")
	if err := flags.Parse(args); err != nil {
		return exitUsage
	}
	if *version {
		fmt.Fprintf(stdout, "%s %s\n", config.AppName, config.AppVersion)
		return exitOK
	}

	application, err := app.NewApplication(*configPath)
	if err != nil {
		slog.Error("Failed to start", "error", err)
		fmt.Fprintf(stderr, "finpulse: %v\n", err)
		return exitStartup
	}

	state, runErr := application.Generate(ctx)
	if stopErr := application.Stop(context.Background()); stopErr != nil {
		fmt.Fprintf(stderr, "finpulse: %v\n", stopErr)
	}
	if state != nil {
		if err := app.PrintResult(stdout, state); err != nil {
			fmt.Fprintf(stderr, "finpulse: %v\n", err)
		}
	}
	if runErr != nil {
		fmt.Fprintf(stderr, "finpulse: %v\n", runErr)
		return exitFailed
	}
	return exitOK
}
