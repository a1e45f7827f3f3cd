package app

import (
	"fmt"
	"strings"

	"github.com/husnusametd/spectra/internal/coins"
	"github.com/husnusametd/spectra/internal/config"
	"github.com/husnusametd/spectra/internal/gateway/binance"
	"github.com/husnusametd/spectra/internal/gateway/coingecko"
	"github.com/husnusametd/spectra/internal/logger"
	"github.com/husnusametd/spectra/internal/market"
	"github.com/husnusametd/spectra/internal/metrics"
)

func buildMarketSource(cfg config.MarketConfig, rec *metrics.Recorder) (market.Source, error) {
	src, err := binance.New(binance.Config{
		RESTBaseURL:     cfg.RESTBaseURL,
		HTTPTimeout:     cfg.HTTPTimeout(),
		ProxyEnabled:    cfg.Proxy.Enabled,
		RESTProxyURL:    cfg.Proxy.URL,
		RPS:             cfg.RPS,
		Burst:           cfg.Burst,
		BreakerFailures: uint32(cfg.BreakerFailures),
		BreakerCooldown: cfg.BreakerCooldown(),
	}, binance.WithStateHook(rec.BreakerStateChanged))
	if err != nil {
		return nil, err
	}
	logger.Infof("[market] binance futures source %s (rps=%.1f burst=%d)", cfg.RESTBaseURL, cfg.RPS, cfg.Burst)
	return src, nil
}

func buildUniverse(cfg *config.Config) (market.Universe, error) {
	var inner market.Universe
	switch cfg.Universe.Source {
	case config.UniverseCoinGecko:
		cg := cfg.Universe.CoinGecko
		inner = coingecko.New(coingecko.Config{
			BaseURL:     cg.URL,
			VsCurrency:  cg.VsCurrency,
			PerPage:     cg.PerPage,
			Pages:       cg.Pages,
			APIKey:      cg.APIKey,
			HTTPTimeout: cfg.Market.HTTPTimeout(),
			RPS:         cg.RPS,
		})
	case config.UniverseStatic:
		if _, err := coins.NormalizeSymbols(cfg.Universe.Symbols, cfg.Market.Quote); err != nil {
			return nil, fmt.Errorf("static universe: %w", err)
		}
		inner = coins.NewStatic(cfg.Universe.Symbols, cfg.Market.Quote)
	default:
		return nil, fmt.Errorf("unknown universe source %q", cfg.Universe.Source)
	}
	if len(cfg.Universe.Exclude) == 0 {
		return inner, nil
	}
	return coins.NewFiltered(inner, cfg.Universe.Exclude), nil
}

func describeUniverse(cfg config.UniverseConfig) string {
	switch cfg.Source {
	case config.UniverseStatic:
		return fmt.Sprintf("static %s", strings.Join(cfg.Symbols, ","))
	default:
		cg := cfg.CoinGecko
		return fmt.Sprintf("coingecko top %d", cg.PerPage*cg.Pages)
	}
}
