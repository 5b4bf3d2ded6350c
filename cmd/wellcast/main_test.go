package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeInput(t *testing.T, dir string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("well_id,period,oil,gas\n")
	start := time.Date(2008, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 60; i++ {
		period := start.AddDate(0, i, 0).Format("2006-01-02")
		oil := 900 - 5*float64(i) + float64(i%12)*3
		fmt.Fprintf(&b, "A-1,%s,%.1f,%.1f\n", period, oil, 2*oil)
		fmt.Fprintf(&b, "B-2,%s,%.1f,%.1f\n", period, oil/2, oil)
	}
	path := filepath.Join(dir, "production.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))
	return path
}

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	content := fmt.Sprintf(`logging:
  level: error
paths:
  output_dir: %s
  logs_dir: %s
telemetry:
  enabled: true
  metrics_file: %s
render:
  pdf: false
  workbook: false
  html: false
`, filepath.Join(dir, "out"), filepath.Join(dir, "logs"), filepath.Join(dir, "metrics.prom"))
	path := filepath.Join(dir, "wellcast.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "version", "--config", writeConfig(t, dir))
	require.NoError(t, err)
	assert.Contains(t, out, "wellcast "+version)
}

func TestProfileCommand(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir)
	input := writeInput(t, dir)

	out, err := execute(t, "profile", "--config", cfg, "--input", input)
	require.NoError(t, err)

	want := filepath.Join(dir, "out", "profiles.csv")
	assert.Equal(t, want, strings.TrimSpace(out))
	assert.FileExists(t, want)
}

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir)
	input := writeInput(t, dir)
	outDir := filepath.Join(dir, "elsewhere")

	out, err := execute(t, "run", "--config", cfg, "--input", input, "--out", outDir)
	require.NoError(t, err)

	assert.Contains(t, out, filepath.Join(outDir, "summary.json"))
	assert.Contains(t, out, filepath.Join(outDir, "forecast.csv"))
	assert.FileExists(t, filepath.Join(outDir, "accuracy.csv"))
	assert.NoFileExists(t, filepath.Join(outDir, "report.pdf"))

	metrics, err := os.ReadFile(filepath.Join(dir, "metrics.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "wellcast_step_executions_total")
}

func TestWellCommand(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir)
	input := writeInput(t, dir)

	out, err := execute(t, "well", "A-1", "--config", cfg, "--input", input)
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(dir, "out", "A-1_summary.json"))

	_, err = execute(t, "well", "Z-9", "--config", cfg, "--input", input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Z-9")
}

func TestCommandErrors(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "run without input",
			args:    []string{"run", "--config", cfg},
			wantErr: "no input file",
		},
		{
			name:    "missing input file",
			args:    []string{"profile", "--config", cfg, "--input", filepath.Join(dir, "absent.csv")},
			wantErr: "load",
		},
		{
			name:    "well without id",
			args:    []string{"well", "--config", cfg},
			wantErr: "accepts 1 arg",
		},
		{
			name:    "snapshot without flags",
			args:    []string{"snapshot", "--config", cfg},
			wantErr: "required flag",
		},
		{
			name:    "invalid config",
			args:    []string{"run", "--config", filepath.Join(dir, "missing.yaml")},
			wantErr: "failed to load config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
