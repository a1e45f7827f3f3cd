package indicator

import (
	"math"

	"github.com/markcheno/go-talib"

	"github.com/husnusametd/spectra/internal/market"
)

// Default periods used by the feature pipeline.
const (
	DefaultEMAFast      = 21
	DefaultEMASlow      = 50
	DefaultRSIPeriod    = 14
	DefaultATRPeriod    = 14
	DefaultBBPeriod     = 20
	DefaultBBDeviations = 2.0
	DefaultVolZWindow   = 20
	DefaultHurstMaxLag  = 100
)

// Series splits candles into the price arrays talib expects.
type Series struct {
	Open, High, Low, Close, Volume []float64
}

// FromCandles copies candle fields into a Series.
func FromCandles(candles []market.Candle) Series {
	s := Series{
		Open:   make([]float64, len(candles)),
		High:   make([]float64, len(candles)),
		Low:    make([]float64, len(candles)),
		Close:  make([]float64, len(candles)),
		Volume: make([]float64, len(candles)),
	}
	for i, c := range candles {
		s.Open[i] = c.Open
		s.High[i] = c.High
		s.Low[i] = c.Low
		s.Close[i] = c.Close
		s.Volume[i] = c.Volume
	}
	return s
}

// Len returns the number of bars.
func (s Series) Len() int { return len(s.Close) }

// EMA returns the latest exponential moving average. The bool is false
// when there are not enough bars.
func EMA(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period {
		return 0, false
	}
	return lastValid(talib.Ema(closes, period))
}

// RSI returns the latest relative strength index.
func RSI(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) <= period {
		return 0, false
	}
	return lastValid(talib.Rsi(closes, period))
}

// ATR returns the latest average true range.
func ATR(highs, lows, closes []float64, period int) (float64, bool) {
	n := len(closes)
	if period <= 0 || n <= period || len(highs) != n || len(lows) != n {
		return 0, false
	}
	return lastValid(talib.Atr(highs, lows, closes, period))
}

// BollingerWidthPct returns (upper-lower)/middle in percent for the last bar.
func BollingerWidthPct(closes []float64, period int, deviations float64) (float64, bool) {
	if period <= 1 || len(closes) < period {
		return 0, false
	}
	upper, middle, lower := talib.BBands(closes, period, deviations, deviations, talib.SMA)
	mid, ok := lastValid(middle)
	if !ok || mid == 0 {
		return 0, false
	}
	up, _ := lastValid(upper)
	lo, _ := lastValid(lower)
	return (up - lo) / mid * 100, true
}

// MACD returns the latest MACD line, signal line and histogram.
func MACD(closes []float64, fast, slow, signal int) (macd, sig, hist float64, ok bool) {
	if fast <= 0 || slow <= fast || signal <= 0 || len(closes) < slow+signal {
		return 0, 0, 0, false
	}
	m, s, h := talib.Macd(closes, fast, slow, signal)
	if macd, ok = lastValid(m); !ok {
		return 0, 0, 0, false
	}
	sig, _ = lastValid(s)
	hist, _ = lastValid(h)
	return macd, sig, hist, true
}

// AbsReturns returns |close[i]/close[i-1] - 1| for every bar after the first.
func AbsReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Abs(closes[i]/closes[i-1]-1))
	}
	return out
}

// VolZScore is the z-score of the latest absolute return against the
// trailing window (population standard deviation).
func VolZScore(closes []float64, window int) (float64, bool) {
	vol := AbsReturns(closes)
	if window <= 1 || len(vol) < window {
		return 0, false
	}
	mean, ok := lastValid(talib.Sma(vol, window))
	if !ok {
		return 0, false
	}
	std, ok := lastValid(talib.StdDev(vol, window, 1))
	if !ok || std == 0 {
		return 0, false
	}
	return (vol[len(vol)-1] - mean) / std, true
}

// RollingStd returns the sample standard deviation of pct returns over each
// trailing window. Index i of the result covers returns ending at bar
// i+window.
func RollingStd(closes []float64, window int) []float64 {
	if window <= 1 || len(closes) <= window {
		return nil
	}
	rets := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] != 0 {
			rets[i-1] = closes[i]/closes[i-1] - 1
		}
	}
	out := make([]float64, 0, len(rets)-window+1)
	for end := window; end <= len(rets); end++ {
		out = append(out, stdev(rets[end-window:end], 1))
	}
	return out
}

// Hurst estimates the Hurst exponent from the scaling of lagged
// differences: the slope of log(stdev(x[t+lag]-x[t])) on log(lag), doubled.
func Hurst(closes []float64, maxLag int) (float64, bool) {
	if maxLag <= 2 || len(closes) <= maxLag {
		return 0, false
	}
	var xs, ys []float64
	for lag := 2; lag < maxLag; lag++ {
		diffs := make([]float64, 0, len(closes)-lag)
		for i := lag; i < len(closes); i++ {
			diffs = append(diffs, closes[i]-closes[i-lag])
		}
		tau := stdev(diffs, 0)
		if tau <= 0 || math.IsNaN(tau) {
			continue
		}
		xs = append(xs, math.Log(float64(lag)))
		ys = append(ys, math.Log(tau))
	}
	slope, ok := linearSlope(xs, ys)
	if !ok {
		return 0, false
	}
	return slope * 2, true
}

func stdev(values []float64, ddof int) float64 {
	n := len(values)
	if n-ddof <= 0 {
		return math.NaN()
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(n)
	ss := 0.0
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-ddof))
}

func linearSlope(xs, ys []float64) (float64, bool) {
	n := float64(len(xs))
	if len(xs) < 2 || len(xs) != len(ys) {
		return 0, false
	}
	var sx, sy, sxx, sxy float64
	for i := range xs {
		sx += xs[i]
		sy += ys[i]
		sxx += xs[i] * xs[i]
		sxy += xs[i] * ys[i]
	}
	den := n*sxx - sx*sx
	if den == 0 {
		return 0, false
	}
	return (n*sxy - sx*sy) / den, true
}

func lastValid(series []float64) (float64, bool) {
	for i := len(series) - 1; i >= 0; i-- {
		if !math.IsNaN(series[i]) && !math.IsInf(series[i], 0) {
			return series[i], true
		}
	}
	return 0, false
}
