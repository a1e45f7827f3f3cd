package middlewares

import (
	"context"
	"time"

	"github.com/husnusametd/spectra/internal/analysis/indicator"
	"github.com/husnusametd/spectra/internal/pipeline"
)

// MACDConfig controls the MACD features.
type MACDConfig struct {
	Name     string
	Stage    int
	Critical bool
	Timeout  time.Duration
	Interval string
	Fast     int
	Slow     int
	Signal   int
}

// MACDMiddleware emits MACD_<TF>, MACD_Signal_<TF> and MACD_Hist_<TF>.
type MACDMiddleware struct {
	meta     pipeline.MiddlewareMeta
	interval string
	fast     int
	slow     int
	signal   int
}

func NewMACDMiddleware(cfg MACDConfig) *MACDMiddleware {
	if cfg.Fast <= 0 {
		cfg.Fast = 12
	}
	if cfg.Slow <= 0 {
		cfg.Slow = 26
	}
	if cfg.Signal <= 0 {
		cfg.Signal = 9
	}
	return &MACDMiddleware{
		meta: pipeline.MiddlewareMeta{
			Name:     nameOrDefault(cfg.Name, "macd"),
			Stage:    cfg.Stage,
			Critical: cfg.Critical,
			Timeout:  cfg.Timeout,
		},
		interval: normInterval(cfg.Interval, "4h"),
		fast:     cfg.Fast,
		slow:     cfg.Slow,
		signal:   cfg.Signal,
	}
}

func (m *MACDMiddleware) Meta() pipeline.MiddlewareMeta { return m.meta }

func (m *MACDMiddleware) Handle(_ context.Context, ac *pipeline.AnalysisContext) error {
	candles := ac.Candles(m.interval)
	need := m.slow + m.signal
	if len(candles) < need {
		return insufficient(m.meta.Name, m.interval, need, len(candles))
	}
	macd, sig, hist, ok := indicator.MACD(closes(candles), m.fast, m.slow, m.signal)
	if !ok {
		return insufficient(m.meta.Name, m.interval, need, len(candles))
	}
	ac.SetFeature(FeatureName("MACD", m.interval), macd)
	ac.SetFeature(FeatureName("MACD_Signal", m.interval), sig)
	ac.SetFeature(FeatureName("MACD_Hist", m.interval), hist)
	return nil
}
