package middlewares

import (
	"context"
	"fmt"
	"time"

	"github.com/husnusametd/spectra/internal/analysis/indicator"
	"github.com/husnusametd/spectra/internal/pipeline"
)

type VolZConfig struct {
	Name     string
	Stage    int
	Critical bool
	Timeout  time.Duration
	Interval string
	Window   int
}

// VolZMiddleware emits Vol_Z_<TF>, the z-score of the latest absolute
// return.
type VolZMiddleware struct {
	meta     pipeline.MiddlewareMeta
	interval string
	window   int
}

func NewVolZMiddleware(cfg VolZConfig) *VolZMiddleware {
	if cfg.Window <= 1 {
		cfg.Window = indicator.DefaultVolZWindow
	}
	return &VolZMiddleware{
		meta: pipeline.MiddlewareMeta{
			Name:     nameOrDefault(cfg.Name, "vol_zscore"),
			Stage:    cfg.Stage,
			Critical: cfg.Critical,
			Timeout:  cfg.Timeout,
		},
		interval: normInterval(cfg.Interval, "1h"),
		window:   cfg.Window,
	}
}

func (m *VolZMiddleware) Meta() pipeline.MiddlewareMeta { return m.meta }

func (m *VolZMiddleware) Handle(_ context.Context, ac *pipeline.AnalysisContext) error {
	candles := ac.Candles(m.interval)
	if len(candles) < m.window+1 {
		return insufficient(m.meta.Name, m.interval, m.window+1, len(candles))
	}
	z, ok := indicator.VolZScore(closes(candles), m.window)
	if !ok {
		return fmt.Errorf("%s: flat returns on %s", m.meta.Name, m.interval)
	}
	ac.SetFeature(FeatureName("Vol_Z", m.interval), z)
	return nil
}
