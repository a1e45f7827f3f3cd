package factory

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/husnusametd/spectra/internal/config"
	"github.com/husnusametd/spectra/internal/logger"
	"github.com/husnusametd/spectra/internal/market"
	"github.com/husnusametd/spectra/internal/pipeline"
	"github.com/husnusametd/spectra/internal/pipeline/middlewares"
	"github.com/husnusametd/spectra/internal/regime"
	"github.com/husnusametd/spectra/internal/scheduler"
)

// Default kline depth per interval. The 4h history has to cover the regime
// detector's window plus a margin for the forming bar.
const (
	Default4HLimit = 520
	Default1HLimit = 200
)

// Factory turns middleware config entries into pipeline nodes.
type Factory struct {
	Source market.Source
}

// Build creates the middleware named by cfg.Name.
func (f *Factory) Build(cfg config.MiddlewareConfig) (pipeline.Middleware, error) {
	name := strings.TrimSpace(cfg.Name)
	switch name {
	case "kline_fetcher":
		return f.buildCandleFetcher(cfg)
	case "orderbook":
		return f.buildDepth(cfg)
	case "trend":
		return buildTrend(cfg)
	case "rsi":
		return buildRSI(cfg)
	case "macd":
		return buildMACD(cfg)
	case "vol_zscore":
		return buildVolZ(cfg)
	case "regime":
		return buildRegime(cfg)
	case "pattern":
		return buildPattern(cfg)
	default:
		return nil, fmt.Errorf("unknown middleware: %s", cfg.Name)
	}
}

// BuildPipeline builds every entry, falling back to DefaultMiddlewares when
// cfgs is empty.
func (f *Factory) BuildPipeline(name string, cfgs []config.MiddlewareConfig) (*pipeline.Pipeline, error) {
	if len(cfgs) == 0 {
		cfgs = DefaultMiddlewares()
	}
	mws := make([]pipeline.Middleware, 0, len(cfgs))
	for i, c := range cfgs {
		mw, err := f.Build(c)
		if err != nil {
			return nil, fmt.Errorf("features.middlewares[%d]: %w", i, err)
		}
		mws = append(mws, mw)
	}
	return pipeline.New(name, mws...), nil
}

// DefaultMiddlewares is the feature set used when the config lists none:
// klines and the order book first, then the indicator families.
func DefaultMiddlewares() []config.MiddlewareConfig {
	return []config.MiddlewareConfig{
		{
			Name:           "kline_fetcher",
			Stage:          0,
			Critical:       true,
			TimeoutSeconds: 30,
			Params: map[string]any{
				"intervals": []any{"4h", "1h"},
				"limits":    map[string]any{"4h": Default4HLimit, "1h": Default1HLimit},
			},
		},
		{Name: "orderbook", Stage: 0, TimeoutSeconds: 15},
		{Name: "trend", Stage: 1, Params: map[string]any{"interval": "4h"}},
		{Name: "rsi", Stage: 1, Params: map[string]any{"interval": "4h"}},
		{Name: "rsi", Stage: 1, Params: map[string]any{"interval": "1h"}},
		{Name: "macd", Stage: 1, Params: map[string]any{"interval": "4h"}},
		{Name: "vol_zscore", Stage: 1, Params: map[string]any{"interval": "1h"}},
		{Name: "regime", Stage: 1, Params: map[string]any{"interval": "4h"}},
		{Name: "pattern", Stage: 1, Params: map[string]any{"interval": "4h"}},
	}
}

func timeout(cfg config.MiddlewareConfig) time.Duration {
	return time.Duration(cfg.TimeoutSeconds) * time.Second
}

func (f *Factory) buildCandleFetcher(cfg config.MiddlewareConfig) (pipeline.Middleware, error) {
	if f.Source == nil {
		return nil, fmt.Errorf("kline_fetcher requires a market source")
	}
	intervals := sliceFromCfg(cfg.Params, "intervals")
	if len(intervals) == 0 {
		return nil, fmt.Errorf("kline_fetcher missing intervals")
	}
	for i, iv := range intervals {
		norm, err := scheduler.NormalizeInterval(iv)
		if err != nil {
			return nil, fmt.Errorf("kline_fetcher: %w", err)
		}
		intervals[i] = norm
	}
	limit := intFromCfg(cfg.Params, "limit")
	if limit < 0 {
		return nil, fmt.Errorf("kline_fetcher limit must be >= 0")
	}
	return middlewares.NewCandleFetcher(middlewares.CandleFetcherConfig{
		Name:      cfg.Name,
		Stage:     cfg.Stage,
		Critical:  cfg.Critical,
		Timeout:   timeout(cfg),
		Intervals: intervals,
		Limit:     limit,
		Limits:    limitsFromCfg(cfg.Params, "limits"),
	}, f.Source), nil
}

func (f *Factory) buildDepth(cfg config.MiddlewareConfig) (pipeline.Middleware, error) {
	if f.Source == nil {
		return nil, fmt.Errorf("orderbook requires a market source")
	}
	return middlewares.NewDepthFeatures(middlewares.DepthConfig{
		Name:     cfg.Name,
		Stage:    cfg.Stage,
		Critical: cfg.Critical,
		Timeout:  timeout(cfg),
		Limit:    intFromCfg(cfg.Params, "limit"),
		Levels:   intFromCfg(cfg.Params, "levels"),
		Band:     floatFromCfg(cfg.Params, "band"),
	}, f.Source), nil
}

func buildTrend(cfg config.MiddlewareConfig) (pipeline.Middleware, error) {
	interval, err := intervalFromCfg(cfg.Params)
	if err != nil {
		return nil, fmt.Errorf("trend: %w", err)
	}
	fast := intFromCfg(cfg.Params, "fast")
	slow := intFromCfg(cfg.Params, "slow")
	if fast > 0 && slow > 0 && fast >= slow {
		return nil, fmt.Errorf("trend fast must be less than slow")
	}
	return middlewares.NewTrendFeatures(middlewares.TrendConfig{
		Name:      cfg.Name,
		Stage:     cfg.Stage,
		Critical:  cfg.Critical,
		Timeout:   timeout(cfg),
		Interval:  interval,
		Fast:      fast,
		Slow:      slow,
		BBPeriod:  intFromCfg(cfg.Params, "bb_period"),
		BBStdDev:  floatFromCfg(cfg.Params, "bb_stddev"),
		ATRPeriod: intFromCfg(cfg.Params, "atr_period"),
		MinBars:   intFromCfg(cfg.Params, "min_bars"),
	}), nil
}

func buildRSI(cfg config.MiddlewareConfig) (pipeline.Middleware, error) {
	interval, err := intervalFromCfg(cfg.Params)
	if err != nil {
		return nil, fmt.Errorf("rsi: %w", err)
	}
	return middlewares.NewRSIMiddleware(middlewares.RSIConfig{
		Name:     cfg.Name,
		Stage:    cfg.Stage,
		Critical: cfg.Critical,
		Timeout:  timeout(cfg),
		Interval: interval,
		Period:   intFromCfg(cfg.Params, "period"),
	}), nil
}

func buildMACD(cfg config.MiddlewareConfig) (pipeline.Middleware, error) {
	interval, err := intervalFromCfg(cfg.Params)
	if err != nil {
		return nil, fmt.Errorf("macd: %w", err)
	}
	fast := intFromCfg(cfg.Params, "fast")
	slow := intFromCfg(cfg.Params, "slow")
	signal := intFromCfg(cfg.Params, "signal")
	if fast <= 0 {
		fast = 12
	}
	if slow <= 0 {
		slow = 26
	}
	if signal <= 0 {
		signal = 9
	}
	if fast >= slow {
		return nil, fmt.Errorf("macd fast must be less than slow")
	}
	return middlewares.NewMACDMiddleware(middlewares.MACDConfig{
		Name:     cfg.Name,
		Stage:    cfg.Stage,
		Critical: cfg.Critical,
		Timeout:  timeout(cfg),
		Interval: interval,
		Fast:     fast,
		Slow:     slow,
		Signal:   signal,
	}), nil
}

func buildVolZ(cfg config.MiddlewareConfig) (pipeline.Middleware, error) {
	interval, err := intervalFromCfg(cfg.Params)
	if err != nil {
		return nil, fmt.Errorf("vol_zscore: %w", err)
	}
	return middlewares.NewVolZMiddleware(middlewares.VolZConfig{
		Name:     cfg.Name,
		Stage:    cfg.Stage,
		Critical: cfg.Critical,
		Timeout:  timeout(cfg),
		Interval: interval,
		Window:   intFromCfg(cfg.Params, "window"),
	}), nil
}

func buildRegime(cfg config.MiddlewareConfig) (pipeline.Middleware, error) {
	interval, err := intervalFromCfg(cfg.Params)
	if err != nil {
		return nil, fmt.Errorf("regime: %w", err)
	}
	det := regime.NewDetector()
	if n := intFromCfg(cfg.Params, "min_bars"); n > 0 {
		det.MinBars = n
	}
	if n := intFromCfg(cfg.Params, "vol_window"); n > 0 {
		det.VolWindow = n
	}
	if h := floatFromCfg(cfg.Params, "trend_hurst"); h > 0 {
		det.TrendHurst = h
	}
	return middlewares.NewRegimeMiddleware(middlewares.RegimeConfig{
		Name:     cfg.Name,
		Stage:    cfg.Stage,
		Critical: cfg.Critical,
		Timeout:  timeout(cfg),
		Interval: interval,
		Detector: det,
	}), nil
}

func buildPattern(cfg config.MiddlewareConfig) (pipeline.Middleware, error) {
	interval, err := intervalFromCfg(cfg.Params)
	if err != nil {
		return nil, fmt.Errorf("pattern: %w", err)
	}
	return middlewares.NewPatternMiddleware(middlewares.PatternConfig{
		Name:     cfg.Name,
		Stage:    cfg.Stage,
		Critical: cfg.Critical,
		Timeout:  timeout(cfg),
		Interval: interval,
		Window:   intFromCfg(cfg.Params, "window"),
	}), nil
}

// intervalFromCfg returns the normalised "interval" param, or "" so the
// middleware applies its own default.
func intervalFromCfg(params map[string]any) (string, error) {
	iv := stringFromCfg(params, "interval")
	if strings.TrimSpace(iv) == "" {
		return "", nil
	}
	return scheduler.NormalizeInterval(iv)
}

func limitsFromCfg(params map[string]any, key string) map[string]int {
	raw, ok := params[key].(map[string]any)
	if !ok || len(raw) == 0 {
		return nil
	}
	out := make(map[string]int, len(raw))
	for iv := range raw {
		if n := intFromCfg(raw, iv); n > 0 {
			out[strings.ToLower(strings.TrimSpace(iv))] = n
		}
	}
	return out
}

func sliceFromCfg(params map[string]any, key string) []string {
	if params == nil {
		return nil
	}
	raw, ok := params[key]
	if !ok {
		return nil
	}
	switch val := raw.(type) {
	case []string:
		return val
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			str := strings.TrimSpace(fmt.Sprintf("%v", item))
			if str == "" {
				continue
			}
			out = append(out, str)
		}
		return out
	default:
		parts := strings.Split(fmt.Sprintf("%v", val), ",")
		out := make([]string, 0, len(parts))
		for _, item := range parts {
			s := strings.TrimSpace(item)
			if s != "" {
				out = append(out, s)
			}
		}
		return out
	}
}

func stringFromCfg(params map[string]any, key string) string {
	if params == nil {
		return ""
	}
	raw, ok := params[key]
	if !ok {
		return ""
	}
	return strings.TrimSpace(fmt.Sprintf("%v", raw))
}

func intFromCfg(params map[string]any, key string) int {
	if params == nil {
		return 0
	}
	raw, ok := params[key]
	if !ok {
		return 0
	}
	switch v := raw.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		val, err := strconv.Atoi(fmt.Sprintf("%v", v))
		if err != nil {
			logger.Warnf("[factory] middleware param %s invalid int: %v", key, err)
			return 0
		}
		return val
	}
}

func floatFromCfg(params map[string]any, key string) float64 {
	if params == nil {
		return 0
	}
	raw, ok := params[key]
	if !ok {
		return 0
	}
	switch v := raw.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		val, err := strconv.ParseFloat(fmt.Sprintf("%v", v), 64)
		if err != nil {
			logger.Warnf("[factory] middleware param %s invalid float: %v", key, err)
			return 0
		}
		return val
	}
}
