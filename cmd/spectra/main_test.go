package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	spec := filepath.Join(dir, "spec.yaml")
	require.NoError(t, os.WriteFile(spec, []byte(`signals:
  oversold:
    primary: "RSI_4H < cfg.rsi_oversold"
    confirm: "Vol_Z_1H > cfg.vol_zscore_min"
`), 0o644))
	cfgPath := filepath.Join(dir, "config.yaml")
	body := strings.Join([]string{
		"app:",
		"  log_dir: \"\"",
		"signals:",
		"  spec_path: " + spec,
		"thresholds:",
		"  path: " + filepath.Join(dir, "thresholds.yaml"),
		"  watch: false",
		"history:",
		"  dir: " + filepath.Join(dir, "history"),
		"walk_forward:",
		"  symbol: BTCUSDT",
		"  timeframe: 1d",
		"",
	}, "\n")
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o644))
	return cfgPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestThresholdsGenerate(t *testing.T) {
	cfg := writeConfig(t)
	out, err := run(t, "--config", cfg, "thresholds", "generate")
	require.NoError(t, err)
	assert.Contains(t, out, "thresholds:")
	assert.Contains(t, out, "rsi_oversold: 30")
	assert.Contains(t, out, "vol_zscore_min: 1.5")
}

func TestThresholdsMerge(t *testing.T) {
	cfg := writeConfig(t)
	out, err := run(t, "--config", cfg, "thresholds", "merge")
	require.NoError(t, err)
	assert.Contains(t, out, "added 2")

	out, err = run(t, "--config", cfg, "thresholds", "merge")
	require.NoError(t, err)
	assert.Contains(t, out, "nothing to add")
}

func TestHistoryImport(t *testing.T) {
	cfg := writeConfig(t)
	csvPath := filepath.Join(t.TempDir(), "btc.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("timestamp,signal_return,RSI_4H\n2024-01-01,0.01,25\n2024-01-02,-0.02,40\n"), 0o644))

	out, err := run(t, "--config", cfg, "history", "import", csvPath)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 2 rows")
	assert.Contains(t, out, "(2 total)")
}

func TestHistoryImport_RequiresFile(t *testing.T) {
	cfg := writeConfig(t)
	_, err := run(t, "--config", cfg, "history", "import")
	assert.Error(t, err)
}

func TestMissingConfig(t *testing.T) {
	_, err := run(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "thresholds", "generate")
	assert.Error(t, err)
}
