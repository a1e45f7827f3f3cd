package middlewares

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/husnusametd/spectra/internal/market"
	"github.com/husnusametd/spectra/internal/pipeline"
)

// CandleFetcherConfig controls kline fetching.
type CandleFetcherConfig struct {
	Name      string
	Stage     int
	Critical  bool
	Timeout   time.Duration
	Intervals []string
	Limit     int
	// Limits overrides Limit per interval.
	Limits map[string]int
}

// CandleFetcher loads klines for each interval into the AnalysisContext.
type CandleFetcher struct {
	meta      pipeline.MiddlewareMeta
	source    market.Source
	intervals []string
	limit     int
	limits    map[string]int
}

func NewCandleFetcher(cfg CandleFetcherConfig, source market.Source) *CandleFetcher {
	if cfg.Limit <= 0 {
		cfg.Limit = 240
	}
	intervals := make([]string, 0, len(cfg.Intervals))
	for _, iv := range cfg.Intervals {
		if iv = normInterval(iv, ""); iv != "" {
			intervals = append(intervals, iv)
		}
	}
	limits := make(map[string]int, len(cfg.Limits))
	for iv, n := range cfg.Limits {
		limits[normInterval(iv, "")] = n
	}
	return &CandleFetcher{
		meta: pipeline.MiddlewareMeta{
			Name:     nameOrDefault(cfg.Name, "kline_fetcher"),
			Stage:    cfg.Stage,
			Critical: cfg.Critical,
			Timeout:  cfg.Timeout,
		},
		source:    source,
		intervals: intervals,
		limit:     cfg.Limit,
		limits:    limits,
	}
}

func (c *CandleFetcher) Meta() pipeline.MiddlewareMeta { return c.meta }

// Handle fetches every interval. It fails only when no interval returned
// any candle; partial failures are reported as warnings.
func (c *CandleFetcher) Handle(ctx context.Context, ac *pipeline.AnalysisContext) error {
	if c.source == nil {
		return fmt.Errorf("kline source unavailable")
	}
	if len(c.intervals) == 0 {
		return fmt.Errorf("no intervals configured")
	}
	var errs []error
	fetched := 0
	for _, iv := range c.intervals {
		if err := ctx.Err(); err != nil {
			return err
		}
		limit := c.limit
		if n, ok := c.limits[iv]; ok && n > 0 {
			limit = n
		}
		candles, err := c.source.Klines(ctx, ac.Symbol, iv, limit)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if len(candles) == 0 {
			continue
		}
		ac.SetCandles(iv, candles)
		fetched++
	}
	if fetched == 0 {
		if len(errs) == 0 {
			return fmt.Errorf("%w: no candles for %s", pipeline.ErrInsufficientData, ac.Symbol)
		}
		return fmt.Errorf("%w: no candles for %s: %w", pipeline.ErrInsufficientData, ac.Symbol, errors.Join(errs...))
	}
	for _, err := range errs {
		ac.AddWarning(err.Error())
	}
	return nil
}
