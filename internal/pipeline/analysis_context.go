package pipeline

import (
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/husnusametd/spectra/internal/market"
)

// AnalysisContext holds one asset's data during a pipeline run. Middlewares
// of a stage share it concurrently.
type AnalysisContext struct {
	Asset     market.Asset
	Symbol    string
	TraceID   string
	StartedAt time.Time

	mu        sync.RWMutex
	intervals map[string][]market.Candle
	depth     *market.Depth
	features  map[string]float64
	warnings  []string
}

// NewContext initialises a context for the exchange symbol of asset.
func NewContext(asset market.Asset, symbol string) *AnalysisContext {
	return &AnalysisContext{
		Asset:     asset,
		Symbol:    strings.ToUpper(strings.TrimSpace(symbol)),
		StartedAt: time.Now(),
		intervals: make(map[string][]market.Candle),
		features:  make(map[string]float64),
	}
}

// SetCandles stores the candles of one interval.
func (ac *AnalysisContext) SetCandles(interval string, candles []market.Candle) {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	iv := strings.ToLower(strings.TrimSpace(interval))
	if iv == "" {
		return
	}
	dst := make([]market.Candle, len(candles))
	copy(dst, candles)
	ac.intervals[iv] = dst
}

// Candles returns a copy of one interval's candles.
func (ac *AnalysisContext) Candles(interval string) []market.Candle {
	ac.mu.RLock()
	defer ac.mu.RUnlock()
	data := ac.intervals[strings.ToLower(strings.TrimSpace(interval))]
	if len(data) == 0 {
		return nil
	}
	out := make([]market.Candle, len(data))
	copy(out, data)
	return out
}

// Intervals lists the intervals with candles, sorted.
func (ac *AnalysisContext) Intervals() []string {
	ac.mu.RLock()
	defer ac.mu.RUnlock()
	out := make([]string, 0, len(ac.intervals))
	for k := range ac.intervals {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (ac *AnalysisContext) SetDepth(d market.Depth) {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	ac.depth = &d
}

func (ac *AnalysisContext) Depth() (market.Depth, bool) {
	ac.mu.RLock()
	defer ac.mu.RUnlock()
	if ac.depth == nil {
		return market.Depth{}, false
	}
	return *ac.depth, true
}

// SetFeature records a feature. NaN and infinite values are dropped so the
// feature stays absent instead of poisoning comparisons.
func (ac *AnalysisContext) SetFeature(name string, value float64) {
	if name == "" || math.IsNaN(value) || math.IsInf(value, 0) {
		return
	}
	ac.mu.Lock()
	defer ac.mu.Unlock()
	ac.features[name] = value
}

// Feature reads one feature.
func (ac *AnalysisContext) Feature(name string) (float64, bool) {
	ac.mu.RLock()
	defer ac.mu.RUnlock()
	v, ok := ac.features[name]
	return v, ok
}

// Snapshot returns a copy of all features.
func (ac *AnalysisContext) Snapshot() map[string]float64 {
	ac.mu.RLock()
	defer ac.mu.RUnlock()
	out := make(map[string]float64, len(ac.features))
	for k, v := range ac.features {
		out[k] = v
	}
	return out
}

func (ac *AnalysisContext) AddWarning(msg string) {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return
	}
	ac.mu.Lock()
	defer ac.mu.Unlock()
	ac.warnings = append(ac.warnings, msg)
}

func (ac *AnalysisContext) Warnings() []string {
	ac.mu.RLock()
	defer ac.mu.RUnlock()
	out := make([]string, len(ac.warnings))
	copy(out, ac.warnings)
	return out
}
