package factory

import (
	"context"
	"testing"

	"github.com/husnusametd/spectra/internal/config"
	"github.com/husnusametd/spectra/internal/market"
	"github.com/husnusametd/spectra/internal/pipeline"
	"github.com/husnusametd/spectra/internal/pipeline/middlewares"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopSource struct{}

func (nopSource) Klines(context.Context, string, string, int) ([]market.Candle, error) {
	return nil, nil
}

func (nopSource) Depth(context.Context, string, int) (market.Depth, error) {
	return market.Depth{}, nil
}

func TestBuild_KnownNames(t *testing.T) {
	f := &Factory{Source: nopSource{}}
	for _, cfg := range DefaultMiddlewares() {
		mw, err := f.Build(cfg)
		require.NoError(t, err, cfg.Name)
		assert.Equal(t, cfg.Stage, mw.Meta().Stage)
	}
}

func TestBuild_Errors(t *testing.T) {
	f := &Factory{Source: nopSource{}}
	_, err := f.Build(config.MiddlewareConfig{Name: "sentiment"})
	assert.ErrorContains(t, err, "unknown middleware")

	_, err = f.Build(config.MiddlewareConfig{Name: "kline_fetcher"})
	assert.ErrorContains(t, err, "missing intervals")

	_, err = f.Build(config.MiddlewareConfig{Name: "macd", Params: map[string]any{"fast": 30, "slow": 20}})
	assert.Error(t, err)

	_, err = f.Build(config.MiddlewareConfig{Name: "trend", Params: map[string]any{"fast": "50", "slow": "21"}})
	assert.Error(t, err)

	_, err = (&Factory{}).Build(config.MiddlewareConfig{Name: "orderbook"})
	assert.ErrorContains(t, err, "market source")

	_, err = f.Build(config.MiddlewareConfig{Name: "kline_fetcher", Params: map[string]any{"intervals": []any{"4h", "90m"}}})
	assert.ErrorContains(t, err, "unsupported kline interval")

	_, err = f.Build(config.MiddlewareConfig{Name: "rsi", Params: map[string]any{"interval": "5h"}})
	assert.ErrorContains(t, err, "rsi: unsupported kline interval")
}

func TestBuild_NormalizesIntervals(t *testing.T) {
	mw, err := buildTrend(config.MiddlewareConfig{Name: "trend", Params: map[string]any{"interval": "1D"}})
	require.NoError(t, err)
	assert.Equal(t, "1d", mw.(*middlewares.TrendFeatures).Config().Interval)
}

func TestBuild_TrendParams(t *testing.T) {
	f := &Factory{}
	mw, err := f.Build(config.MiddlewareConfig{
		Name:           "trend",
		Stage:          1,
		TimeoutSeconds: 3,
		Params:         map[string]any{"interval": "1H", "fast": 9, "slow": "30", "bb_stddev": 2.5},
	})
	require.NoError(t, err)
	trend, ok := mw.(*middlewares.TrendFeatures)
	require.True(t, ok)
	cfg := trend.Config()
	assert.Equal(t, "1h", cfg.Interval)
	assert.Equal(t, 9, cfg.Fast)
	assert.Equal(t, 30, cfg.Slow)
	assert.Equal(t, 2.5, cfg.BBStdDev)
	assert.Equal(t, 3.0, mw.Meta().Timeout.Seconds())
}

func TestBuildPipeline_DefaultsWhenEmpty(t *testing.T) {
	p, err := (&Factory{Source: nopSource{}}).BuildPipeline("features", nil)
	require.NoError(t, err)
	names := p.Middlewares()
	require.Len(t, names, len(DefaultMiddlewares()))
	assert.ElementsMatch(t, []string{"kline_fetcher", "orderbook"}, names[:2])
}

func TestBuildPipeline_NoCandlesIsInsufficient(t *testing.T) {
	p, err := (&Factory{Source: nopSource{}}).BuildPipeline("features", nil)
	require.NoError(t, err)
	_, err = pipeline.NewBuilder(p, "USDT").Snapshot(context.Background(), market.Asset{Symbol: "xyz"})
	assert.ErrorIs(t, err, pipeline.ErrInsufficientData)
}

func TestParamHelpers(t *testing.T) {
	params := map[string]any{
		"list":   []any{"4h", " ", "1h"},
		"csv":    "4h, 1d",
		"int":    "12",
		"float":  7,
		"limits": map[string]any{"4H": 520, "1h": "200", "bad": "x"},
	}
	assert.Equal(t, []string{"4h", "1h"}, sliceFromCfg(params, "list"))
	assert.Equal(t, []string{"4h", "1d"}, sliceFromCfg(params, "csv"))
	assert.Equal(t, 12, intFromCfg(params, "int"))
	assert.Equal(t, 7.0, floatFromCfg(params, "float"))
	assert.Equal(t, 0, intFromCfg(nil, "int"))
	assert.Equal(t, map[string]int{"4h": 520, "1h": 200}, limitsFromCfg(params, "limits"))
}
