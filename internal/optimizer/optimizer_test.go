package optimizer

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/husnusametd/spectra/internal/thresholds"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomSearch_ChangesOnlyInputKeys(t *testing.T) {
	current := thresholds.Set{"rsi_oversold": 30, "vol_zscore": 1.5}
	unrelated := thresholds.Set{"other": 7}

	opt := NewRandomSearch(Config{Trials: 50, Seed: 1})
	res, err := opt.Optimize(context.Background(), current, func(_ context.Context, p thresholds.Set) (float64, error) {
		return -math.Abs(p["rsi_oversold"] - 40), nil
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, current.Keys(), res.Params.Keys())
	assert.Equal(t, thresholds.Set{"rsi_oversold": 30, "vol_zscore": 1.5}, current)

	merged, _ := thresholds.MergeMissing(res.Params, unrelated)
	assert.Equal(t, 7.0, merged["other"])
	assert.Equal(t, 50, res.Trials)
	assert.False(t, res.TimedOut)
}

func TestRandomSearch_StaysInBounds(t *testing.T) {
	current := thresholds.Set{"pos": 10, "neg": -4, "zero": 0}
	opt := NewRandomSearch(Config{Trials: 100, Seed: 42})
	_, err := opt.Optimize(context.Background(), current, func(_ context.Context, p thresholds.Set) (float64, error) {
		assert.GreaterOrEqual(t, p["pos"], 5.0)
		assert.LessOrEqual(t, p["pos"], 15.0)
		assert.GreaterOrEqual(t, p["neg"], -6.0)
		assert.LessOrEqual(t, p["neg"], -2.0)
		assert.Equal(t, 0.0, p["zero"])
		return p["pos"], nil
	})
	require.NoError(t, err)
}

func TestRandomSearch_NeverWorseThanCurrent(t *testing.T) {
	current := thresholds.Set{"x": 10}
	opt := NewRandomSearch(Config{Trials: 20, Seed: 3})
	res, err := opt.Optimize(context.Background(), current, func(_ context.Context, p thresholds.Set) (float64, error) {
		return -math.Abs(p["x"] - 10), nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Score)
	assert.Equal(t, 10.0, res.Params["x"])
}

func TestRandomSearch_Deterministic(t *testing.T) {
	current := thresholds.Set{"a": 1, "b": 2}
	objective := func(_ context.Context, p thresholds.Set) (float64, error) { return p["a"] * p["b"], nil }

	first, err := NewRandomSearch(Config{Trials: 30, Seed: 9}).Optimize(context.Background(), current, objective)
	require.NoError(t, err)
	second, err := NewRandomSearch(Config{Trials: 30, Seed: 9}).Optimize(context.Background(), current, objective)
	require.NoError(t, err)
	assert.Equal(t, first.Params, second.Params)
	assert.Equal(t, first.Score, second.Score)
}

func TestRandomSearch_KeysRestrictSearch(t *testing.T) {
	current := thresholds.Set{"a": 1, "b": 2}
	opt := NewRandomSearch(Config{Trials: 30, Seed: 5, Keys: []string{"a", "missing"}})
	res, err := opt.Optimize(context.Background(), current, func(_ context.Context, p thresholds.Set) (float64, error) {
		assert.Equal(t, 2.0, p["b"])
		return p["a"], nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2.0, res.Params["b"])
	assert.NotContains(t, res.Params, "missing")
}

func TestRandomSearch_TimeoutIsSoft(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	opt := NewRandomSearch(Config{Trials: 100, Timeout: time.Minute, Seed: 1})
	opt.now = func() time.Time { return clock }

	res, err := opt.Optimize(context.Background(), thresholds.Set{"x": 1}, func(_ context.Context, p thresholds.Set) (float64, error) {
		clock = clock.Add(25 * time.Second)
		return p["x"], nil
	})
	require.NoError(t, err)
	assert.True(t, res.TimedOut)
	assert.Equal(t, 3, res.Trials)
	assert.Contains(t, res.Params, "x")
}

func TestRandomSearch_CancelledContextKeepsCurrent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := NewRandomSearch(Config{Trials: 10, Seed: 1}).Optimize(ctx, thresholds.Set{"x": 4}, func(_ context.Context, p thresholds.Set) (float64, error) {
		return 1, nil
	})
	require.NoError(t, err)
	assert.True(t, res.TimedOut)
	assert.Equal(t, 1, res.Trials)
	assert.Equal(t, thresholds.Set{"x": 4}, res.Params)
}

func TestRandomSearch_NaNIgnoredAndErrorsAbort(t *testing.T) {
	res, err := NewRandomSearch(Config{Trials: 5, Seed: 1}).Optimize(context.Background(), thresholds.Set{"x": 1}, func(context.Context, thresholds.Set) (float64, error) {
		return math.NaN(), nil
	})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(res.Score))
	assert.Equal(t, thresholds.Set{"x": 1}, res.Params)

	boom := errors.New("no data")
	_, err = NewRandomSearch(Config{Trials: 5, Seed: 1}).Optimize(context.Background(), thresholds.Set{"x": 1}, func(context.Context, thresholds.Set) (float64, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = NewRandomSearch(Config{}).Optimize(context.Background(), thresholds.Set{}, nil)
	assert.Error(t, err)
}

func TestBoundsAndDefaults(t *testing.T) {
	lo, hi := Bounds(-10, 0.5)
	assert.Equal(t, -15.0, lo)
	assert.Equal(t, -5.0, hi)

	cfg := NewRandomSearch(Config{}).Config()
	assert.Equal(t, DefaultTrials, cfg.Trials)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, DefaultSpread, cfg.Spread)
}
