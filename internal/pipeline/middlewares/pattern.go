package middlewares

import (
	"context"
	"time"

	"github.com/husnusametd/spectra/internal/analysis/pattern"
	"github.com/husnusametd/spectra/internal/pipeline"
)

const defaultPatternWindow = 120

type PatternConfig struct {
	Name     string
	Stage    int
	Critical bool
	Timeout  time.Duration
	Interval string
	// Window is how many of the newest bars are scanned.
	Window int
}

// PatternMiddleware emits Trend_Slope_Pct_<TF>, Trend_Bias_<TF> and the 0/1
// flags Double_Bottom_<TF>, Double_Top_<TF>, Triangle_<TF>, Compression_<TF>.
type PatternMiddleware struct {
	meta     pipeline.MiddlewareMeta
	interval string
	window   int
}

func NewPatternMiddleware(cfg PatternConfig) *PatternMiddleware {
	if cfg.Window <= 0 {
		cfg.Window = defaultPatternWindow
	}
	return &PatternMiddleware{
		meta: pipeline.MiddlewareMeta{
			Name:     nameOrDefault(cfg.Name, "pattern"),
			Stage:    cfg.Stage,
			Critical: cfg.Critical,
			Timeout:  cfg.Timeout,
		},
		interval: normInterval(cfg.Interval, "4h"),
		window:   cfg.Window,
	}
}

func (m *PatternMiddleware) Meta() pipeline.MiddlewareMeta { return m.meta }

func (m *PatternMiddleware) Handle(_ context.Context, ac *pipeline.AnalysisContext) error {
	candles := ac.Candles(m.interval)
	if len(candles) < 20 {
		return insufficient(m.meta.Name, m.interval, 20, len(candles))
	}
	if len(candles) > m.window {
		candles = candles[len(candles)-m.window:]
	}
	res := pattern.Analyze(candles)
	ac.SetFeature(FeatureName("Trend_Slope_Pct", m.interval), res.SlopePct)
	ac.SetFeature(FeatureName("Trend_Bias", m.interval), float64(res.Bias))
	ac.SetFeature(FeatureName("Double_Bottom", m.interval), flag(res.DoubleBottom))
	ac.SetFeature(FeatureName("Double_Top", m.interval), flag(res.DoubleTop))
	ac.SetFeature(FeatureName("Triangle", m.interval), flag(res.Triangle))
	ac.SetFeature(FeatureName("Compression", m.interval), flag(res.Compression))
	return nil
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
