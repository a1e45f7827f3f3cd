package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "app:\n  env: test\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.App.Env)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, "USDT", cfg.Market.Quote)
	assert.Equal(t, UniverseCoinGecko, cfg.Universe.Source)
	assert.Equal(t, 250, cfg.Universe.CoinGecko.PerPage)
	assert.Equal(t, DefaultScanTimes, cfg.Scan.Times)
	assert.Equal(t, 0.0001, cfg.Scan.TickSize)
	assert.Equal(t, "ATR_4H", cfg.Scan.ATRFeature)
	assert.True(t, cfg.Thresholds.Watch)
	assert.Equal(t, 180, cfg.WalkForward.LookbackDays)
	assert.Equal(t, 0.8, cfg.WalkForward.MinScore)
	assert.Equal(t, 200, cfg.Optimizer.Trials)
	assert.Equal(t, 587, cfg.Notify.SMTP.Port)
}

func TestLoad_ExplicitValuesKept(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", `
thresholds:
  watch: false
scan:
  times: ["01:00"]
  concurrency: 2
market:
  quote: usdc
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Thresholds.Watch)
	assert.Equal(t, []string{"01:00"}, cfg.Scan.Times)
	assert.Equal(t, 2, cfg.Scan.Concurrency)
	assert.Equal(t, "USDC", cfg.Market.Quote)
}

func TestLoad_IncludesMergeInOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "scan:\n  concurrency: 3\n  tick_size: 0.01\n")
	path := writeFile(t, dir, "config.yaml", "include: [base.yaml]\nscan:\n  concurrency: 5\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Scan.Concurrency)
	assert.Equal(t, 0.01, cfg.Scan.TickSize)
}

func TestLoad_IncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "include: [b.yaml]\n")
	writeFile(t, dir, "b.yaml", "include: [a.yaml]\n")
	_, err := Load(filepath.Join(dir, "a.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "include cycle")
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("SPECTRA_TEST_TOKEN", "secret")
	path := writeFile(t, t.TempDir(), "config.yaml", `
notify:
  telegram:
    enabled: true
    bot_token: ${SPECTRA_TEST_TOKEN}
    chat_id: "42"
  smtp:
    password: ${SPECTRA_TEST_UNSET_PASSWORD}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.Notify.Telegram.BotToken)
	assert.Equal(t, "${SPECTRA_TEST_UNSET_PASSWORD}", cfg.Notify.SMTP.Password)
}

func TestLoad_Middlewares(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", `
features:
  middlewares:
    - name: trend
      stage: 1
      timeout_seconds: 5
      params:
        interval: 1h
        fast: 9
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Features.Middlewares, 1)
	mw := cfg.Features.Middlewares[0]
	assert.Equal(t, "trend", mw.Name)
	assert.Equal(t, 1, mw.Stage)
	assert.Equal(t, "1h", mw.Params["interval"])
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := map[string]string{
		"static without symbols": "universe:\n  source: static\n",
		"unknown universe":       "universe:\n  source: cmc\n",
		"bad scan time":          "scan:\n  times: [\"25:99\"]\n",
		"telegram without token": "notify:\n  telegram:\n    enabled: true\n",
		"unnamed middleware":     "features:\n  middlewares:\n    - stage: 1\n",
		"unknown log level":      "app:\n  log_level: verbose\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "config.yaml", body)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestResolvePath(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	assert.Equal(t, DefaultPath, ResolvePath(""))
	t.Setenv(EnvConfigPath, "/etc/spectra.yaml")
	assert.Equal(t, "/etc/spectra.yaml", ResolvePath(""))
	assert.Equal(t, "local.yaml", ResolvePath(" local.yaml "))
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "configs/spec.yaml", cfg.Signals.SpecPath)
	assert.Equal(t, "data/history", cfg.History.Dir)
	assert.NoError(t, validate(cfg))
}
