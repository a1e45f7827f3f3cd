package indicator

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/husnusametd/spectra/internal/market"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func rising(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + float64(i)
	}
	return out
}

func TestEMA(t *testing.T) {
	v, ok := EMA(constant(60, 42), DefaultEMASlow)
	require.True(t, ok)
	assert.InDelta(t, 42, v, 1e-9)

	fast, _ := EMA(rising(80), DefaultEMAFast)
	slow, _ := EMA(rising(80), DefaultEMASlow)
	assert.Greater(t, fast, slow)

	_, ok = EMA(rising(10), DefaultEMASlow)
	assert.False(t, ok)
}

func TestRSI(t *testing.T) {
	v, ok := RSI(rising(40), DefaultRSIPeriod)
	require.True(t, ok)
	assert.InDelta(t, 100, v, 1e-9)

	_, ok = RSI(rising(DefaultRSIPeriod), DefaultRSIPeriod)
	assert.False(t, ok)
}

func TestATR(t *testing.T) {
	closes := constant(30, 50)
	highs := constant(30, 51)
	lows := constant(30, 49)
	v, ok := ATR(highs, lows, closes, DefaultATRPeriod)
	require.True(t, ok)
	assert.InDelta(t, 2, v, 1e-9)

	_, ok = ATR(highs[:10], lows, closes, DefaultATRPeriod)
	assert.False(t, ok)
}

func TestBollingerWidthPct(t *testing.T) {
	v, ok := BollingerWidthPct(constant(30, 10), DefaultBBPeriod, DefaultBBDeviations)
	require.True(t, ok)
	assert.InDelta(t, 0, v, 1e-9)

	wide, ok := BollingerWidthPct(rising(30), DefaultBBPeriod, DefaultBBDeviations)
	require.True(t, ok)
	assert.Greater(t, wide, 0.0)

	_, ok = BollingerWidthPct(constant(5, 10), DefaultBBPeriod, DefaultBBDeviations)
	assert.False(t, ok)
}

func TestMACD(t *testing.T) {
	m, s, h, ok := MACD(constant(60, 10), 12, 26, 9)
	require.True(t, ok)
	assert.InDelta(t, 0, m, 1e-9)
	assert.InDelta(t, 0, s, 1e-9)
	assert.InDelta(t, 0, h, 1e-9)

	m, _, _, ok = MACD(rising(80), 12, 26, 9)
	require.True(t, ok)
	assert.Greater(t, m, 0.0)

	_, _, _, ok = MACD(rising(30), 12, 26, 9)
	assert.False(t, ok)
	_, _, _, ok = MACD(rising(80), 26, 12, 9)
	assert.False(t, ok)
}

func TestVolZScore(t *testing.T) {
	_, ok := VolZScore(constant(40, 10), DefaultVolZWindow)
	assert.False(t, ok, "zero dispersion has no z-score")

	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100
		if i%2 == 1 {
			closes[i] = 101
		}
	}
	closes[len(closes)-1] = closes[len(closes)-2] * 1.1
	z, ok := VolZScore(closes, DefaultVolZWindow)
	require.True(t, ok)
	assert.Greater(t, z, 1.0)

	_, ok = VolZScore(closes[:10], DefaultVolZWindow)
	assert.False(t, ok)
}

func TestAbsReturnsAndRollingStd(t *testing.T) {
	assert.Nil(t, AbsReturns([]float64{1}))
	assert.InDeltaSlice(t, []float64{0.1, 0.1}, AbsReturns([]float64{100, 110, 99}), 1e-12)

	stds := RollingStd(constant(40, 5), 30)
	require.Len(t, stds, 10)
	for _, s := range stds {
		assert.Equal(t, 0.0, s)
	}
	assert.Nil(t, RollingStd(constant(10, 5), 30))
}

func TestHurst(t *testing.T) {
	alternating := make([]float64, 300)
	for i := range alternating {
		alternating[i] = 100 + math.Pow(-1, float64(i))
	}
	h, ok := Hurst(alternating, DefaultHurstMaxLag)
	require.True(t, ok)
	assert.InDelta(t, 0, h, 1e-9)

	rng := rand.New(rand.NewPCG(7, 7))
	walk := make([]float64, 3000)
	walk[0] = 1000
	for i := 1; i < len(walk); i++ {
		walk[i] = walk[i-1] + rng.NormFloat64()
	}
	h, ok = Hurst(walk, DefaultHurstMaxLag)
	require.True(t, ok)
	assert.InDelta(t, 0.5, h, 0.2)

	_, ok = Hurst(rising(50), DefaultHurstMaxLag)
	assert.False(t, ok)
}

func TestFromCandles(t *testing.T) {
	now := time.Now()
	s := FromCandles([]market.Candle{
		{OpenTime: now.UnixMilli(), Open: 1, High: 3, Low: 0.5, Close: 2, Volume: 10},
		{OpenTime: now.Add(time.Hour).UnixMilli(), Open: 2, High: 4, Low: 1.5, Close: 3, Volume: 11},
	})
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []float64{2, 3}, s.Close)
	assert.Equal(t, []float64{3, 4}, s.High)
	assert.Equal(t, []float64{10, 11}, s.Volume)
}
