// Package pattern detects simple chart structures on a candle window and
// reports them as numeric flags.
package pattern

import (
	"math"

	"github.com/husnusametd/spectra/internal/market"
)

// Bias of the regression line through the closes.
const (
	BiasBearish = -1
	BiasFlat    = 0
	BiasBullish = 1
)

const (
	flatSlopePct     = 0.01
	doubleTolerance  = 0.004
	triangleMinWidth = 0.05
	compressionRatio = 0.65
)

type Result struct {
	// SlopePct is the regression slope per bar as a percent of the last
	// close.
	SlopePct     float64
	Bias         int
	DoubleBottom bool
	DoubleTop    bool
	Triangle     bool
	Compression  bool
}

// Analyze scans candles oldest first. Detectors that need more bars than
// available report false.
func Analyze(candles []market.Candle) Result {
	if len(candles) == 0 {
		return Result{}
	}
	closes := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
	}
	var res Result
	slope, _ := fitLine(closes)
	if last := closes[len(closes)-1]; last != 0 {
		res.SlopePct = slope / last * 100
	}
	switch {
	case res.SlopePct > flatSlopePct:
		res.Bias = BiasBullish
	case res.SlopePct < -flatSlopePct:
		res.Bias = BiasBearish
	}
	res.DoubleBottom = doubleBottom(lows)
	res.DoubleTop = doubleTop(highs)
	res.Triangle = triangle(highs, lows)
	res.Compression = compression(highs, lows)
	return res
}

func fitLine(series []float64) (slope, intercept float64) {
	var sumX, sumY, sumXY, sumXX float64
	n := float64(len(series))
	for i, y := range series {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, series[len(series)-1]
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return
}

// doubleBottom looks for two lows within 0.4% of each other in the recent
// half, at least three bars apart.
func doubleBottom(lows []float64) bool {
	if len(lows) < 20 {
		return false
	}
	window := lows[len(lows)/2:]
	min1, idx1 := extreme(window, func(a, b float64) bool { return a < b })
	masked := mask(window, idx1, math.MaxFloat64)
	min2, idx2 := extreme(masked, func(a, b float64) bool { return a < b })
	return math.Abs(min1-min2)/math.Max(min1, 1) <= doubleTolerance && idx2 >= 3
}

func doubleTop(highs []float64) bool {
	if len(highs) < 20 {
		return false
	}
	window := highs[len(highs)/2:]
	max1, idx1 := extreme(window, func(a, b float64) bool { return a > b })
	masked := mask(window, idx1, -math.MaxFloat64)
	max2, idx2 := extreme(masked, func(a, b float64) bool { return a > b })
	return math.Abs(max1-max2)/math.Max(max1, 1) <= doubleTolerance && idx2 >= 3
}

// triangle: lower highs and higher lows with the range narrowing by more
// than 5% of price between the two halves.
func triangle(highs, lows []float64) bool {
	if len(highs) < 30 {
		return false
	}
	half := len(highs) / 2
	firstHigh, lastHigh := maxOf(highs[:half]), maxOf(highs[half:])
	firstLow, lastLow := minOf(lows[:half]), minOf(lows[half:])
	if lastHigh >= firstHigh || lastLow <= firstLow {
		return false
	}
	return ((firstHigh-firstLow)-(lastHigh-lastLow))/firstHigh > triangleMinWidth
}

// compression: the recent half's range is under 65% of the earlier half's.
func compression(highs, lows []float64) bool {
	if len(highs) < 40 {
		return false
	}
	half := len(highs) / 2
	first := (maxOf(highs[:half]) - minOf(lows[:half])) / maxOf(highs[:half])
	second := (maxOf(highs[half:]) - minOf(lows[half:])) / maxOf(highs[half:])
	return second < first*compressionRatio
}

func mask(values []float64, center int, fill float64) []float64 {
	out := append([]float64(nil), values...)
	for i := center - 2; i <= center+2; i++ {
		if i >= 0 && i < len(out) {
			out[i] = fill
		}
	}
	return out
}

func extreme(values []float64, better func(a, b float64) bool) (float64, int) {
	idx := 0
	for i, v := range values {
		if better(v, values[idx]) {
			idx = i
		}
	}
	return values[idx], idx
}

func minOf(values []float64) float64 {
	m := math.MaxFloat64
	for _, v := range values {
		m = math.Min(m, v)
	}
	return m
}

func maxOf(values []float64) float64 {
	m := -math.MaxFloat64
	for _, v := range values {
		m = math.Max(m, v)
	}
	return m
}
