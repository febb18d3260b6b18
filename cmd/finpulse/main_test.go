package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, extra string) string {
	t.Helper()
	content := fmt.Sprintf(`synthesis:
  record_count: 80
  names: sequence
periods:
  count: 2
  records_per_period: 40
output:
  dir: %s
logging:
  output: file
  file_path: %s
%s`, filepath.Join(dir, "output"), filepath.Join(dir, "logs", "finpulse.log"), extra)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, exitOK, run(context.Background(), []string{"-version"}, &stdout, &stderr))
	assert.Equal(t, "finpulse 1.0.0\n", stdout.String())
}

func TestRun_BadFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, exitUsage, run(context.Background(), []string{"-nope"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "-nope")
}

func TestRun_MissingConfig(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-config", filepath.Join(t.TempDir(), "absent.yaml")}, &stdout, &stderr)
	assert.Equal(t, exitStartup, code)
	assert.Contains(t, stderr.String(), "failed to load configuration")
}

func TestRun_Generate(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-config", path}, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())

	out := stdout.String()
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "One-way ANOVA")

	for _, name := range []string{
		"financial_dashboard_data.csv",
		"financial_dashboard_data.xlsx",
		"financial_dashboard_data_extended.csv",
		"anova_report.json",
		"analysis_report.xlsx",
		"analysis_summary.txt",
		"metrics.prom",
	} {
		assert.FileExists(t, filepath.Join(dir, "output", name))
	}
}
