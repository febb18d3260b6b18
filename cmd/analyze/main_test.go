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

	"finpulse/internal/dataset"
)

func setup(t *testing.T) (configPath, outputDir string) {
	t.Helper()
	dir := t.TempDir()
	outputDir = filepath.Join(dir, "output")
	content := fmt.Sprintf(`periods:
  enabled: false
analysis:
  dataset: base
output:
  dir: %s
logging:
  output: file
  file_path: %s
`, outputDir, filepath.Join(dir, "logs", "analyze.log"))
	configPath = filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))
	return configPath, outputDir
}

func writeDataset(t *testing.T, path string) {
	t.Helper()
	ds, err := dataset.Synthesize(dataset.DefaultParams(), dataset.SequenceNames{})
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, ds.WriteCSV(f))
	require.NoError(t, f.Close())
}

func TestRun_AnalyzeInput(t *testing.T) {
	configPath, outputDir := setup(t)
	input := filepath.Join(t.TempDir(), "sales.csv")
	writeDataset(t, input)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-config", configPath, "-input", input}, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())

	assert.Contains(t, stdout.String(), "Dataset: 500 records")
	assert.FileExists(t, filepath.Join(outputDir, "anova_report.json"))
	assert.FileExists(t, filepath.Join(outputDir, "analysis_summary.txt"))
	assert.NoFileExists(t, filepath.Join(outputDir, "financial_dashboard_data.csv"))
}

func TestRun_DefaultsToConfiguredDataset(t *testing.T) {
	configPath, outputDir := setup(t)
	writeDataset(t, filepath.Join(outputDir, "financial_dashboard_data.csv"))

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-config", configPath}, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())
	assert.FileExists(t, filepath.Join(outputDir, "anova_report.json"))
}

func TestRun_MissingInput(t *testing.T) {
	configPath, _ := setup(t)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-config", configPath, "-input", filepath.Join(t.TempDir(), "absent.csv")}, &stdout, &stderr)
	assert.Equal(t, exitFailed, code)
	assert.Contains(t, stdout.String(), "failed")
	assert.Contains(t, stderr.String(), "load")
}
