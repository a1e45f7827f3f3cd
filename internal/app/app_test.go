package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/husnusametd/spectra/internal/coins"
	"github.com/husnusametd/spectra/internal/config"
	"github.com/husnusametd/spectra/internal/gateway/notifier"
	"github.com/husnusametd/spectra/internal/market"
	"github.com/husnusametd/spectra/internal/thresholds"
	"github.com/husnusametd/spectra/internal/walkforward"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSpec = `signals:
  uptrend:
    primary: "Price_4H > cfg.min_price"
    confirm: "Market_Cap_Rank <= cfg.max_rank"
  momo:
    primary: "Momentum > cfg.min_momentum"
`

const testThresholds = `thresholds:
  min_price: 10
  max_rank: 1
  min_momentum: 5
`

type risingSource struct{}

func (risingSource) Klines(_ context.Context, _ string, interval string, limit int) ([]market.Candle, error) {
	step := 4 * time.Hour
	if interval == "1h" {
		step = time.Hour
	}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]market.Candle, limit)
	for i := range out {
		c := 100 + float64(i)*0.1 + float64(i%3)*0.05
		out[i] = market.Candle{
			OpenTime:  start.Add(time.Duration(i) * step).UnixMilli(),
			CloseTime: start.Add(time.Duration(i+1)*step).UnixMilli() - 1,
			Open:      c - 0.05,
			High:      c + 0.2,
			Low:       c - 0.2,
			Close:     c,
			Volume:    1000 + float64(i%7),
		}
	}
	return out, nil
}

func (risingSource) Depth(_ context.Context, symbol string, _ int) (market.Depth, error) {
	return market.Depth{
		Symbol: symbol,
		Bids:   []market.Level{{Price: 99.9, Quantity: 10}, {Price: 99.8, Quantity: 5}},
		Asks:   []market.Level{{Price: 100.1, Quantity: 4}, {Price: 100.2, Quantity: 2}},
	}, nil
}

type captureNotifier struct {
	mu   sync.Mutex
	msgs []notifier.Message
}

func (c *captureNotifier) Name() string { return "capture" }

func (c *captureNotifier) Send(_ context.Context, msg notifier.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
	return nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	specPath := filepath.Join(dir, "spec.yaml")
	thPath := filepath.Join(dir, "thresholds.yaml")
	require.NoError(t, os.WriteFile(specPath, []byte(testSpec), 0o644))
	require.NoError(t, os.WriteFile(thPath, []byte(testThresholds), 0o644))

	cfg := config.Default()
	cfg.App.LogDir = ""
	cfg.App.HTTPAddr = "127.0.0.1:0"
	cfg.Universe.Source = config.UniverseStatic
	cfg.Universe.Symbols = []string{"BTC", "ETH"}
	cfg.Signals.SpecPath = specPath
	cfg.Thresholds.Path = thPath
	cfg.Thresholds.Watch = false
	cfg.History.Dir = filepath.Join(dir, "history")
	cfg.WalkForward.ReportDir = filepath.Join(dir, "reports")
	cfg.Optimizer.Trials = 20
	cfg.Optimizer.Seed = 1
	return cfg
}

func buildTestApp(t *testing.T, cfg *config.Config, n notifier.Notifier, out *bytes.Buffer) *App {
	t.Helper()
	a, err := NewAppBuilder(cfg,
		WithSource(risingSource{}),
		WithUniverse(coins.NewStatic(cfg.Universe.Symbols, cfg.Market.Quote)),
		WithNotifier(n),
		WithOutput(out),
	).Build(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestBuild_Summary(t *testing.T) {
	cfg := testConfig(t)
	a := buildTestApp(t, cfg, &captureNotifier{}, &bytes.Buffer{})

	require.NotNil(t, a.Summary)
	assert.Equal(t, []string{"uptrend", "momo"}, a.Summary.Rules)
	assert.Equal(t, 3, a.Summary.Thresholds)
	assert.Equal(t, "capture", a.Summary.Notifier)
	assert.Contains(t, a.Summary.String(), "uptrend, momo")
	assert.Equal(t, 2, a.Catalog().Len())
}

func TestBuild_MissingSpecFails(t *testing.T) {
	cfg := testConfig(t)
	cfg.Signals.SpecPath = filepath.Join(t.TempDir(), "nope.yaml")
	_, err := NewAppBuilder(cfg, WithSource(risingSource{})).Build(context.Background())
	assert.Error(t, err)
}

func TestScanOnce_DryRunPrintsRows(t *testing.T) {
	cfg := testConfig(t)
	capture := &captureNotifier{}
	var out bytes.Buffer
	a := buildTestApp(t, cfg, capture, &out)

	res, err := a.ScanOnce(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	assert.Equal(t, 2, res.Universe)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "BTC", res.Rows[0].Ticker)
	assert.Equal(t, "uptrend", res.Rows[0].Signal)
	assert.Equal(t, "High", res.Rows[0].Conviction)
	assert.Contains(t, out.String(), "BTC")
	assert.Empty(t, capture.msgs)
}

func TestScanOnce_Notifies(t *testing.T) {
	cfg := testConfig(t)
	capture := &captureNotifier{}
	a := buildTestApp(t, cfg, capture, &bytes.Buffer{})

	res, err := a.ScanOnce(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, res.Notified)
	require.Len(t, capture.msgs, 1)
	assert.Equal(t, cfg.Notify.Subject, capture.msgs[0].Subject)
	assert.Contains(t, capture.msgs[0].HTML, "BTC")

	latest, ok := a.scanner.Latest()
	require.True(t, ok)
	assert.Equal(t, res.TraceID, latest.TraceID)
}

func seedHistory(t *testing.T, a *App, ret func(i int) float64) {
	t.Helper()
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]walkforward.Point, 301)
	for i := range points {
		points[i] = walkforward.Point{
			Time:     start.Add(walkforward.Days(i)),
			Return:   ret(i),
			Features: map[string]float64{"Momentum": 10},
		}
	}
	n, err := a.History().Insert(context.Background(), "BTCUSDT", "1d", points)
	require.NoError(t, err)
	require.Equal(t, len(points), n)
}

func TestWalk_PassPersistsThresholds(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer
	a := buildTestApp(t, cfg, &captureNotifier{}, &out)
	seedHistory(t, a, func(i int) float64 {
		if i%3 == 0 {
			return -0.01
		}
		return 0.02
	})
	before := a.Thresholds().Snapshot().Version

	res, err := a.Walk(context.Background(), WalkOptions{
		Symbol: "btcusdt", Timeframe: "1D", LookbackDays: 180, StepDays: 30,
		HTML: true, CSV: true, Persist: true,
	})
	require.NoError(t, err)
	assert.True(t, res.Report.Passed)
	assert.Len(t, res.Report.Records, 4)
	assert.Equal(t, "BTCUSDT", res.Report.Symbol)
	assert.True(t, res.Persisted)
	assert.Greater(t, a.Thresholds().Snapshot().Version, before)
	assert.FileExists(t, thresholds.BackupPath(cfg.Thresholds.Path))
	assert.FileExists(t, res.ChartPath)
	assert.FileExists(t, res.CSVPath)
	assert.Contains(t, out.String(), "PASS")

	latest, ok := a.walk.LatestWalk()
	require.True(t, ok)
	assert.Equal(t, res.Report.RunID, latest.RunID)
}

func TestWalk_FailKeepsThresholds(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer
	a := buildTestApp(t, cfg, &captureNotifier{}, &out)
	seedHistory(t, a, func(i int) float64 {
		if i%2 == 0 {
			return -0.03
		}
		return 0.01
	})
	before := a.Thresholds().Snapshot()

	res, err := a.Walk(context.Background(), WalkOptions{Symbol: "BTCUSDT", Timeframe: "1d", Persist: true})
	require.NoError(t, err)
	assert.False(t, res.Report.Passed)
	assert.False(t, res.Persisted)
	assert.Equal(t, before.Version, a.Thresholds().Snapshot().Version)
	assert.NoFileExists(t, thresholds.BackupPath(cfg.Thresholds.Path))
	assert.Contains(t, out.String(), "FAIL")
}

func TestWalk_NoHistory(t *testing.T) {
	cfg := testConfig(t)
	a := buildTestApp(t, cfg, &captureNotifier{}, &bytes.Buffer{})
	_, err := a.Walk(context.Background(), WalkOptions{Symbol: "DOGEUSDT", Timeframe: "4h"})
	assert.Error(t, err)
	_, ok := a.walk.LatestWalk()
	assert.False(t, ok)
}

func TestWalkService_ResolveKeepsExplicitZeroMinScore(t *testing.T) {
	svc := NewWalkService(WalkServiceConfig{WalkForward: config.WalkForwardConfig{
		Symbol: "BTCUSDT", Timeframe: "4h", LookbackDays: 180, StepDays: 30, MinScore: 0.8,
	}}, nil, nil, nil, nil)

	got := svc.resolve(WalkOptions{})
	require.NotNil(t, got.MinScore)
	assert.Equal(t, 0.8, *got.MinScore)
	assert.Equal(t, 180, got.LookbackDays)

	zero := 0.0
	got = svc.resolve(WalkOptions{MinScore: &zero, Timeframe: "1D", Symbol: "ethusdt"})
	assert.Equal(t, 0.0, *got.MinScore)
	assert.Equal(t, "1d", got.Timeframe)
	assert.Equal(t, "ETHUSDT", got.Symbol)
}
