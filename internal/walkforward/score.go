package walkforward

import (
	"math"
	"sort"
	"strings"
)

// DefaultMinScore is the median OOS score a run needs to pass the gate.
const DefaultMinScore = 0.8

// PeriodsPerYear returns the annualisation factor for a bar timeframe.
// Unknown timeframes fall back to daily.
func PeriodsPerYear(timeframe string) float64 {
	switch strings.ToLower(strings.TrimSpace(timeframe)) {
	case "1h":
		return 24 * 365
	case "4h":
		return 6 * 365
	case "1d":
		return 365
	default:
		return 365
	}
}

// Sharpe is mean/stdev*sqrt(periodsPerYear) with the sample standard
// deviation. A series with fewer than two points or no dispersion scores 0.
func Sharpe(returns []float64, periodsPerYear float64) float64 {
	n := len(returns)
	if n < 2 {
		return 0
	}
	lo, hi := returns[0], returns[0]
	sum := 0.0
	for _, r := range returns {
		sum += r
		lo = math.Min(lo, r)
		hi = math.Max(hi, r)
	}
	// Exact check; summing a constant series can leave rounding noise.
	if lo == hi {
		return 0
	}
	mean := sum / float64(n)
	ss := 0.0
	for _, r := range returns {
		d := r - mean
		ss += d * d
	}
	sd := math.Sqrt(ss / float64(n-1))
	if sd == 0 || math.IsNaN(sd) || math.IsNaN(mean) {
		return 0
	}
	if periodsPerYear <= 0 {
		periodsPerYear = 365
	}
	return mean / sd * math.Sqrt(periodsPerYear)
}

// Median returns the median of values and false when values is empty.
func Median(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid], true
	}
	return (sorted[mid-1] + sorted[mid]) / 2, true
}

// Scores extracts the OOS score of every record.
func Scores(records []WindowRecord) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = r.OOSScore
	}
	return out
}

// Gate passes when the median OOS score reaches minScore. No records means
// no evidence, so the gate fails.
func Gate(records []WindowRecord, minScore float64) bool {
	median, ok := Median(Scores(records))
	if !ok || math.IsNaN(median) {
		return false
	}
	return median >= minScore
}
