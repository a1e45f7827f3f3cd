// Package regime classifies a close series as trending, ranging or in a
// high-volatility state.
package regime

import (
	"math"
	"sort"

	"github.com/husnusametd/spectra/internal/analysis/indicator"
)

// Regime is encoded as a number so rules can compare it in formulas.
type Regime int

const (
	Range Regime = iota
	Trend
	HighVol
)

func (r Regime) String() string {
	switch r {
	case Trend:
		return "trend"
	case HighVol:
		return "high_vol"
	default:
		return "range"
	}
}

// Defaults for Detector.
const (
	DefaultMinBars     = 500
	DefaultVolWindow   = 30
	DefaultTrendHurst  = 0.55
	DefaultTrendVolQ   = 0.6
	DefaultHighVolQ    = 0.8
	DefaultHurstMaxLag = indicator.DefaultHurstMaxLag
)

// Detector classifies with a Hurst exponent over the last MinBars closes and
// the rolling volatility of returns against its own history.
type Detector struct {
	MinBars     int
	VolWindow   int
	HurstMaxLag int
	TrendHurst  float64
	TrendVolQ   float64
	HighVolQ    float64
}

// NewDetector returns a Detector with default parameters.
func NewDetector() Detector {
	return Detector{
		MinBars:     DefaultMinBars,
		VolWindow:   DefaultVolWindow,
		HurstMaxLag: DefaultHurstMaxLag,
		TrendHurst:  DefaultTrendHurst,
		TrendVolQ:   DefaultTrendVolQ,
		HighVolQ:    DefaultHighVolQ,
	}
}

// Result carries the classification and the measures behind it. Hurst and
// Vol are NaN when they could not be computed.
type Result struct {
	Regime Regime
	Hurst  float64
	Vol    float64
}

// Detect classifies closes, oldest first. Series shorter than MinBars are
// reported as Range.
func (d Detector) Detect(closes []float64) Result {
	res := Result{Regime: Range, Hurst: math.NaN(), Vol: math.NaN()}
	if len(closes) < d.MinBars {
		return res
	}
	if h, ok := indicator.Hurst(closes[len(closes)-d.MinBars:], d.HurstMaxLag); ok {
		res.Hurst = h
	}
	vols := indicator.RollingStd(closes, d.VolWindow)
	if len(vols) == 0 {
		return res
	}
	res.Vol = vols[len(vols)-1]
	trendCut := Quantile(vols, d.TrendVolQ)
	highCut := Quantile(vols, d.HighVolQ)

	switch {
	case !math.IsNaN(res.Hurst) && res.Hurst > d.TrendHurst && res.Vol < trendCut:
		res.Regime = Trend
	case res.Vol > highCut:
		res.Regime = HighVol
	}
	return res
}

// Quantile returns the q-th quantile with linear interpolation between
// closest ranks. NaN values are ignored.
func Quantile(values []float64, q float64) float64 {
	sorted := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			sorted = append(sorted, v)
		}
	}
	if len(sorted) == 0 {
		return math.NaN()
	}
	sort.Float64s(sorted)
	q = math.Max(0, math.Min(1, q))
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
