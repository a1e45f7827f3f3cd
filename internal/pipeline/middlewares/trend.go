package middlewares

import (
	"context"
	"fmt"
	"time"

	"github.com/husnusametd/spectra/internal/analysis/indicator"
	"github.com/husnusametd/spectra/internal/pipeline"
)

// DefaultTrendMinBars is the fewest candles the trend features are computed
// from.
const DefaultTrendMinBars = 60

// TrendConfig controls price, EMA, Bollinger and ATR features.
type TrendConfig struct {
	Name      string
	Stage     int
	Critical  bool
	Timeout   time.Duration
	Interval  string
	Fast      int
	Slow      int
	BBPeriod  int
	BBStdDev  float64
	ATRPeriod int
	MinBars   int
}

// TrendFeatures emits Price_<TF>, EMA<fast>_<TF>, EMA<slow>_<TF>,
// BB_Width_<TF> and ATR_<TF>.
type TrendFeatures struct {
	meta pipeline.MiddlewareMeta
	cfg  TrendConfig
}

func NewTrendFeatures(cfg TrendConfig) *TrendFeatures {
	cfg.Interval = normInterval(cfg.Interval, "4h")
	if cfg.Fast <= 0 {
		cfg.Fast = indicator.DefaultEMAFast
	}
	if cfg.Slow <= 0 {
		cfg.Slow = indicator.DefaultEMASlow
	}
	if cfg.BBPeriod <= 0 {
		cfg.BBPeriod = indicator.DefaultBBPeriod
	}
	if cfg.BBStdDev <= 0 {
		cfg.BBStdDev = indicator.DefaultBBDeviations
	}
	if cfg.ATRPeriod <= 0 {
		cfg.ATRPeriod = indicator.DefaultATRPeriod
	}
	if cfg.MinBars <= 0 {
		cfg.MinBars = DefaultTrendMinBars
	}
	return &TrendFeatures{
		meta: pipeline.MiddlewareMeta{
			Name:     nameOrDefault(cfg.Name, "trend"),
			Stage:    cfg.Stage,
			Critical: cfg.Critical,
			Timeout:  cfg.Timeout,
		},
		cfg: cfg,
	}
}

func (m *TrendFeatures) Meta() pipeline.MiddlewareMeta { return m.meta }

// Config returns the effective configuration.
func (m *TrendFeatures) Config() TrendConfig { return m.cfg }

func (m *TrendFeatures) Handle(_ context.Context, ac *pipeline.AnalysisContext) error {
	iv := m.cfg.Interval
	candles := ac.Candles(iv)
	if len(candles) < m.cfg.MinBars {
		return insufficient(m.meta.Name, iv, m.cfg.MinBars, len(candles))
	}
	series := indicator.FromCandles(candles)
	last := series.Close[len(series.Close)-1]
	ac.SetFeature(FeatureName("Price", iv), last)
	if _, ok := ac.Feature(pipeline.FeaturePrice); !ok {
		ac.SetFeature(pipeline.FeaturePrice, last)
	}
	if v, ok := indicator.EMA(series.Close, m.cfg.Fast); ok {
		ac.SetFeature(FeatureName(fmt.Sprintf("EMA%d", m.cfg.Fast), iv), v)
	}
	if v, ok := indicator.EMA(series.Close, m.cfg.Slow); ok {
		ac.SetFeature(FeatureName(fmt.Sprintf("EMA%d", m.cfg.Slow), iv), v)
	}
	if v, ok := indicator.BollingerWidthPct(series.Close, m.cfg.BBPeriod, m.cfg.BBStdDev); ok {
		ac.SetFeature(FeatureName("BB_Width", iv), v)
	}
	if v, ok := indicator.ATR(series.High, series.Low, series.Close, m.cfg.ATRPeriod); ok {
		ac.SetFeature(FeatureName("ATR", iv), v)
	}
	return nil
}
