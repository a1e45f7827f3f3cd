package binance

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/husnusametd/spectra/internal/logger"
	"github.com/husnusametd/spectra/internal/market"
	"github.com/husnusametd/spectra/internal/pkg/circuit"
	"github.com/husnusametd/spectra/internal/scheduler"

	"github.com/adshao/go-binance/v2/futures"
)

const (
	maxHistoryLimit   = 1500
	defaultDepthLimit = 1000
)

var depthLimits = []int{5, 10, 20, 50, 100, 500, 1000}

// Source implements market.Source on the go-binance futures SDK.
type Source struct {
	cfg    Config
	client *futures.Client
	guard  *circuit.Guard
	nowFn  func() time.Time
}

// Option customises a Source.
type Option func(*Source)

// WithStateHook forwards breaker transitions, e.g. to metrics.
func WithStateHook(fn func(name, from, to string)) Option {
	return func(s *Source) {
		s.guard = newGuard(s.cfg, fn)
	}
}

func New(cfg Config, opts ...Option) (*Source, error) {
	final := cfg.withDefaults()
	client := futures.NewClient("", "")
	client.BaseURL = final.RESTBaseURL
	httpClient := &http.Client{Timeout: final.HTTPTimeout}
	if final.ProxyEnabled && final.RESTProxyURL != "" {
		proxyURL, err := url.Parse(final.RESTProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REST proxy url: %w", err)
		}
		baseTransport, ok := http.DefaultTransport.(*http.Transport)
		if !ok || baseTransport == nil {
			return nil, fmt.Errorf("http DefaultTransport is not *http.Transport")
		}
		transport := baseTransport.Clone()
		transport.Proxy = http.ProxyURL(proxyURL)
		httpClient.Transport = transport
	}
	client.HTTPClient = httpClient
	s := &Source{
		cfg:    final,
		client: client,
		guard:  newGuard(final, nil),
		nowFn:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func newGuard(cfg Config, hook func(name, from, to string)) *circuit.Guard {
	return circuit.New(circuit.Settings{
		Name:          "binance",
		Failures:      cfg.BreakerFailures,
		Cooldown:      cfg.BreakerCooldown,
		RPS:           cfg.RPS,
		Burst:         cfg.Burst,
		OnStateChange: hook,
	})
}

// Klines returns closed candles, oldest first. A still-forming last candle is
// dropped.
func (s *Source) Klines(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	interval = strings.ToLower(strings.TrimSpace(interval))
	if interval == "" {
		return nil, fmt.Errorf("interval is required")
	}
	var kls []*futures.Kline
	err := s.guard.Do(ctx, func(ctx context.Context) error {
		var err error
		kls, err = s.client.NewKlinesService().Symbol(symbol).Interval(interval).Limit(limit).Do(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("binance klines %s %s: %w", symbol, interval, err)
	}
	out := make([]market.Candle, 0, len(kls))
	for _, kl := range kls {
		if kl == nil {
			continue
		}
		out = append(out, market.Candle{
			OpenTime:  kl.OpenTime,
			CloseTime: kl.CloseTime,
			Open:      parseFloat(kl.Open),
			High:      parseFloat(kl.High),
			Low:       parseFloat(kl.Low),
			Close:     parseFloat(kl.Close),
			Volume:    parseFloat(kl.Volume),
			Trades:    kl.TradeNum,
		})
	}
	if dur, ok := scheduler.ParseIntervalDuration(interval); ok {
		out = scheduler.DropUnclosedKline(out, dur, s.nowFn())
	}
	logger.Debugf("[binance] klines %s %s limit=%d got=%d", symbol, interval, limit, len(out))
	return out, nil
}

// Depth returns an order-book snapshot. limit is rounded up to the nearest
// depth Binance accepts.
func (s *Source) Depth(ctx context.Context, symbol string, limit int) (market.Depth, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return market.Depth{}, fmt.Errorf("symbol is required")
	}
	limit = depthLimit(limit)
	var res *futures.DepthResponse
	err := s.guard.Do(ctx, func(ctx context.Context) error {
		var err error
		res, err = s.client.NewDepthService().Symbol(symbol).Limit(limit).Do(ctx)
		return err
	})
	if err != nil {
		return market.Depth{}, fmt.Errorf("binance depth %s: %w", symbol, err)
	}
	out := market.Depth{
		Symbol: symbol,
		Bids:   make([]market.Level, 0, len(res.Bids)),
		Asks:   make([]market.Level, 0, len(res.Asks)),
	}
	for _, b := range res.Bids {
		out.Bids = append(out.Bids, market.Level{Price: parseFloat(b.Price), Quantity: parseFloat(b.Quantity)})
	}
	for _, a := range res.Asks {
		out.Asks = append(out.Asks, market.Level{Price: parseFloat(a.Price), Quantity: parseFloat(a.Quantity)})
	}
	return out, nil
}

// BreakerState exposes the guard state for status endpoints.
func (s *Source) BreakerState() string { return s.guard.State() }

func depthLimit(limit int) int {
	if limit <= 0 {
		return defaultDepthLimit
	}
	for _, allowed := range depthLimits {
		if limit <= allowed {
			return allowed
		}
	}
	return depthLimits[len(depthLimits)-1]
}

func parseFloat(v string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
	return f
}
