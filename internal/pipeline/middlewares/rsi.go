package middlewares

import (
	"context"
	"time"

	"github.com/husnusametd/spectra/internal/analysis/indicator"
	"github.com/husnusametd/spectra/internal/pipeline"
)

// RSIConfig controls the RSI feature.
type RSIConfig struct {
	Name     string
	Stage    int
	Critical bool
	Timeout  time.Duration
	Interval string
	Period   int
}

// RSIMiddleware emits RSI_<TF>.
type RSIMiddleware struct {
	meta     pipeline.MiddlewareMeta
	interval string
	period   int
}

func NewRSIMiddleware(cfg RSIConfig) *RSIMiddleware {
	if cfg.Period <= 0 {
		cfg.Period = indicator.DefaultRSIPeriod
	}
	return &RSIMiddleware{
		meta: pipeline.MiddlewareMeta{
			Name:     nameOrDefault(cfg.Name, "rsi"),
			Stage:    cfg.Stage,
			Critical: cfg.Critical,
			Timeout:  cfg.Timeout,
		},
		interval: normInterval(cfg.Interval, "4h"),
		period:   cfg.Period,
	}
}

func (m *RSIMiddleware) Meta() pipeline.MiddlewareMeta { return m.meta }

func (m *RSIMiddleware) Handle(_ context.Context, ac *pipeline.AnalysisContext) error {
	candles := ac.Candles(m.interval)
	if len(candles) < m.period+1 {
		return insufficient(m.meta.Name, m.interval, m.period+1, len(candles))
	}
	if v, ok := indicator.RSI(closes(candles), m.period); ok {
		ac.SetFeature(FeatureName("RSI", m.interval), v)
	}
	return nil
}
