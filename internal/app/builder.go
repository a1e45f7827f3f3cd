package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/husnusametd/spectra/internal/config"
	"github.com/husnusametd/spectra/internal/gateway/notifier"
	"github.com/husnusametd/spectra/internal/history"
	"github.com/husnusametd/spectra/internal/logger"
	"github.com/husnusametd/spectra/internal/market"
	"github.com/husnusametd/spectra/internal/metrics"
	"github.com/husnusametd/spectra/internal/pipeline"
	"github.com/husnusametd/spectra/internal/pipeline/factory"
	"github.com/husnusametd/spectra/internal/scanner"
	"github.com/husnusametd/spectra/internal/signal"
	"github.com/husnusametd/spectra/internal/thresholds"
	statushttp "github.com/husnusametd/spectra/internal/transport/http/status"
)

type AppBuilder struct {
	cfg *config.Config

	sourceFn   func(config.MarketConfig, *metrics.Recorder) (market.Source, error)
	universeFn func(*config.Config) (market.Universe, error)
	notifierFn func(config.NotifyConfig, io.Writer) notifier.Notifier
	serverFn   func(config.AppConfig, statushttp.ServerConfig) *statushttp.Server

	out io.Writer
}

type AppBuilderOption func(*AppBuilder)

// WithSource replaces the Binance market source.
func WithSource(src market.Source) AppBuilderOption {
	return func(b *AppBuilder) {
		b.sourceFn = func(config.MarketConfig, *metrics.Recorder) (market.Source, error) { return src, nil }
	}
}

// WithUniverse replaces the configured universe provider.
func WithUniverse(u market.Universe) AppBuilderOption {
	return func(b *AppBuilder) {
		b.universeFn = func(*config.Config) (market.Universe, error) { return u, nil }
	}
}

// WithNotifier replaces the configured delivery channels.
func WithNotifier(n notifier.Notifier) AppBuilderOption {
	return func(b *AppBuilder) {
		b.notifierFn = func(config.NotifyConfig, io.Writer) notifier.Notifier { return n }
	}
}

// WithOutput sets where dry-run rows, previews and walk tables are written.
func WithOutput(w io.Writer) AppBuilderOption {
	return func(b *AppBuilder) { b.out = w }
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:        cfg,
		sourceFn:   buildMarketSource,
		universeFn: buildUniverse,
		notifierFn: buildNotifier,
		serverFn:   buildStatusServer,
		out:        os.Stdout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	a := &App{cfg: cfg}
	fail := func(err error) (*App, error) {
		_ = a.Close()
		return nil, err
	}

	logger.SetLevel(cfg.App.LogLevel)
	if dir := strings.TrimSpace(cfg.App.LogDir); dir != "" {
		w, err := logger.OpenDaily(dir, "spectra", cfg.App.LogRetentionDays)
		if err != nil {
			return fail(err)
		}
		logger.SetOutput(io.MultiWriter(os.Stdout, w))
		a.closers = append(a.closers, w)
	}

	a.recorder = metrics.New()
	source, err := b.sourceFn(cfg.Market, a.recorder)
	if err != nil {
		return fail(fmt.Errorf("init market source: %w", err))
	}
	universe, err := b.universeFn(cfg)
	if err != nil {
		return fail(fmt.Errorf("init universe: %w", err))
	}

	fac := &factory.Factory{Source: source}
	pipe, err := fac.BuildPipeline("features", cfg.Features.Middlewares)
	if err != nil {
		return fail(fmt.Errorf("build feature pipeline: %w", err))
	}
	snapshots := pipeline.NewBuilder(pipe, cfg.Market.Quote)

	rules, err := signal.LoadSpec(cfg.Signals.SpecPath)
	if err != nil {
		return fail(err)
	}
	catalog, ruleErrs, err := signal.Compile(rules)
	if err != nil {
		return fail(fmt.Errorf("compile signals: %w", err))
	}
	a.catalog = catalog

	store, err := thresholds.Open(cfg.Thresholds.Path)
	if err != nil {
		return fail(err)
	}
	if missing := store.Values().Missing(catalog.ThresholdRefs()); len(missing) > 0 {
		logger.Warnf("[thresholds] %s lacks %v; rules using them stay unsatisfied (run `spectra thresholds merge`)", store.Path(), missing)
	}
	if cfg.Thresholds.Watch {
		if err := store.Watch(); err != nil {
			logger.Warnf("[thresholds] hot reload disabled: %v", err)
		}
	}
	store.Subscribe(func(s thresholds.Snapshot) {
		logger.Infof("[thresholds] version %d active with %d values", s.Version, len(s.Values))
	})
	a.thresholds = store

	scanCfg := scanner.Config{
		Concurrency: cfg.Scan.Concurrency,
		Subject:     cfg.Notify.Subject,
		Out:         b.out,
		Levels: scanner.Levels{
			TickSize:   cfg.Scan.TickSize,
			ATRFeature: cfg.Scan.ATRFeature,
			StopATR:    cfg.Scan.StopATR,
			TP1ATR:     cfg.Scan.TP1ATR,
			TP2ATR:     cfg.Scan.TP2ATR,
		},
	}
	notify := b.notifierFn(cfg.Notify, b.out)
	deps := scanner.Deps{
		Universe:   universe,
		Builder:    snapshots,
		Rules:      catalog,
		Thresholds: store,
		Notifier:   notify,
		Recorder:   a.recorder,
	}
	if a.scanner, err = scanner.New(scanCfg, deps); err != nil {
		return fail(err)
	}
	scanCfg.DryRun = true
	if a.dryRunner, err = scanner.New(scanCfg, deps); err != nil {
		return fail(err)
	}

	hist, err := history.NewStore(cfg.History.Dir)
	if err != nil {
		return fail(fmt.Errorf("open history store: %w", err))
	}
	a.history = hist
	a.closers = append(a.closers, hist)

	a.walk = NewWalkService(WalkServiceConfig{
		WalkForward: cfg.WalkForward,
		Optimizer:   cfg.Optimizer,
		Out:         b.out,
	}, hist, catalog, store, a.recorder)

	a.server = b.serverFn(cfg.App, statushttp.ServerConfig{
		Scans:      a.scanner,
		Walks:      a.walk,
		Thresholds: store,
		Metrics:    a.recorder.Handler(),
	})

	a.Summary = &StartupSummary{
		Env:            cfg.App.Env,
		Universe:       describeUniverse(cfg.Universe),
		Middlewares:    pipe.Middlewares(),
		Rules:          catalog.Names(),
		DisabledParts:  len(ruleErrs),
		ThresholdsPath: store.Path(),
		Thresholds:     len(store.Values()),
		ScanTimes:      cfg.Scan.Times,
		Notifier:       notifierName(notify),
		HTTPAddr:       a.server.Addr(),
	}
	return a, nil
}

func notifierName(n notifier.Notifier) string {
	if n == nil {
		return "none"
	}
	return n.Name()
}
