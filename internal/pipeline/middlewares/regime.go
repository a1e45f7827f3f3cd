package middlewares

import (
	"context"
	"math"
	"time"

	"github.com/husnusametd/spectra/internal/pipeline"
	"github.com/husnusametd/spectra/internal/regime"
)

type RegimeConfig struct {
	Name     string
	Stage    int
	Critical bool
	Timeout  time.Duration
	Interval string
	Detector regime.Detector
}

// RegimeMiddleware emits Regime_<TF> (0 range, 1 trend, 2 high_vol) and
// Hurst_<TF> when it could be estimated.
type RegimeMiddleware struct {
	meta     pipeline.MiddlewareMeta
	interval string
	detector regime.Detector
}

func NewRegimeMiddleware(cfg RegimeConfig) *RegimeMiddleware {
	if cfg.Detector.MinBars <= 0 {
		cfg.Detector = regime.NewDetector()
	}
	return &RegimeMiddleware{
		meta: pipeline.MiddlewareMeta{
			Name:     nameOrDefault(cfg.Name, "regime"),
			Stage:    cfg.Stage,
			Critical: cfg.Critical,
			Timeout:  cfg.Timeout,
		},
		interval: normInterval(cfg.Interval, "4h"),
		detector: cfg.Detector,
	}
}

func (m *RegimeMiddleware) Meta() pipeline.MiddlewareMeta { return m.meta }

// Handle always emits a regime; a short history classifies as range.
func (m *RegimeMiddleware) Handle(_ context.Context, ac *pipeline.AnalysisContext) error {
	candles := ac.Candles(m.interval)
	if len(candles) == 0 {
		return insufficient(m.meta.Name, m.interval, 1, 0)
	}
	res := m.detector.Detect(closes(candles))
	ac.SetFeature(FeatureName("Regime", m.interval), float64(res.Regime))
	if !math.IsNaN(res.Hurst) {
		ac.SetFeature(FeatureName("Hurst", m.interval), res.Hurst)
	}
	return nil
}
