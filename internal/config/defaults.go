package config

import "strings"

const (
	defaultAppEnv           = "dev"
	defaultAppLogLevel      = "info"
	defaultAppLogDir        = "logs"
	defaultAppLogRetention  = 7
	defaultAppHTTPAddr      = ":9991"
	defaultMarketREST       = "https://fapi.binance.com"
	defaultMarketQuote      = "USDT"
	defaultMarketTimeout    = 15
	defaultMarketRPS        = 10
	defaultMarketBurst      = 5
	defaultBreakerFailures  = 5
	defaultBreakerCooldown  = 30
	defaultCoinGeckoURL     = "https://api.coingecko.com/api/v3"
	defaultCoinGeckoVs      = "usd"
	defaultCoinGeckoPerPage = 250
	defaultCoinGeckoPages   = 2
	defaultCoinGeckoRPS     = 0.5
	defaultScanConcurrency  = 8
	defaultScanTick         = 0.0001
	defaultScanATRFeature   = "ATR_4H"
	defaultScanStopATR      = 0.8
	defaultScanTP1ATR       = 1.6
	defaultScanTP2ATR       = 3.0
	defaultSpecPath         = "configs/spec.yaml"
	defaultThresholdsPath   = "configs/thresholds.yaml"
	defaultNotifySubject    = "[Spectra] Crypto Signal Report"
	defaultSMTPPort         = 587
	defaultWalkSymbol       = "BTCUSDT"
	defaultWalkTimeframe    = "4h"
	defaultWalkLookback     = 180
	defaultWalkStep         = 30
	defaultWalkMinScore     = 0.8
	defaultWalkReportDir    = "reports"
	defaultOptimizerTrials  = 200
	defaultOptimizerTimeout = 1800
	defaultOptimizerSpread  = 0.5
	defaultHistoryDir       = "data/history"
)

// DefaultScanTimes are the UTC times a scan runs each day.
var DefaultScanTimes = []string{"00:05", "08:05", "12:35", "20:05"}

// applyDefaults fills every section. Keys present in the file are left as
// written, even when zero.
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Market.applyDefaults(keys)
	c.Universe.applyDefaults(keys)
	c.Scan.applyDefaults(keys)
	c.Notify.applyDefaults(keys)
	c.WalkForward.applyDefaults(keys)
	c.Optimizer.applyDefaults(keys)
	applyFieldDefaults(keys,
		stringFieldDefault("signals.spec_path", &c.Signals.SpecPath, defaultSpecPath),
		stringFieldDefault("thresholds.path", &c.Thresholds.Path, defaultThresholdsPath),
		boolFieldDefault("thresholds.watch", &c.Thresholds.Watch, true),
		stringFieldDefault("history.dir", &c.History.Dir, defaultHistoryDir),
	)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.log_dir", &a.LogDir, defaultAppLogDir),
		intFieldDefault("app.log_retention_days", &a.LogRetentionDays, defaultAppLogRetention),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
	)
}

func (m *MarketConfig) applyDefaults(keys keySet) {
	m.Proxy.normalize()
	applyFieldDefaults(keys,
		stringFieldDefault("market.rest_base_url", &m.RESTBaseURL, defaultMarketREST),
		stringFieldDefault("market.quote", &m.Quote, defaultMarketQuote),
		intFieldDefault("market.http_timeout_seconds", &m.HTTPTimeoutSeconds, defaultMarketTimeout),
		floatFieldDefault("market.rps", &m.RPS, defaultMarketRPS),
		intFieldDefault("market.burst", &m.Burst, defaultMarketBurst),
		intFieldDefault("market.breaker_failures", &m.BreakerFailures, defaultBreakerFailures),
		intFieldDefault("market.breaker_cooldown_seconds", &m.BreakerCooldownSeconds, defaultBreakerCooldown),
	)
	m.Quote = strings.ToUpper(strings.TrimSpace(m.Quote))
}

func (u *UniverseConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("universe.source", &u.Source, UniverseCoinGecko),
		stringFieldDefault("universe.coingecko.url", &u.CoinGecko.URL, defaultCoinGeckoURL),
		stringFieldDefault("universe.coingecko.vs_currency", &u.CoinGecko.VsCurrency, defaultCoinGeckoVs),
		intFieldDefault("universe.coingecko.per_page", &u.CoinGecko.PerPage, defaultCoinGeckoPerPage),
		intFieldDefault("universe.coingecko.pages", &u.CoinGecko.Pages, defaultCoinGeckoPages),
		floatFieldDefault("universe.coingecko.rps", &u.CoinGecko.RPS, defaultCoinGeckoRPS),
	)
	u.Source = strings.ToLower(strings.TrimSpace(u.Source))
}

func (s *ScanConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "scan.times",
			need:  func() bool { return len(s.Times) == 0 },
			apply: func() { s.Times = append([]string(nil), DefaultScanTimes...) },
		},
		intFieldDefault("scan.concurrency", &s.Concurrency, defaultScanConcurrency),
		floatFieldDefault("scan.tick_size", &s.TickSize, defaultScanTick),
		stringFieldDefault("scan.atr_feature", &s.ATRFeature, defaultScanATRFeature),
		floatFieldDefault("scan.stop_atr", &s.StopATR, defaultScanStopATR),
		floatFieldDefault("scan.tp1_atr", &s.TP1ATR, defaultScanTP1ATR),
		floatFieldDefault("scan.tp2_atr", &s.TP2ATR, defaultScanTP2ATR),
	)
}

func (n *NotifyConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("notify.subject", &n.Subject, defaultNotifySubject),
		intFieldDefault("notify.smtp.port", &n.SMTP.Port, defaultSMTPPort),
	)
}

func (w *WalkForwardConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("walk_forward.symbol", &w.Symbol, defaultWalkSymbol),
		stringFieldDefault("walk_forward.timeframe", &w.Timeframe, defaultWalkTimeframe),
		intFieldDefault("walk_forward.lookback_days", &w.LookbackDays, defaultWalkLookback),
		intFieldDefault("walk_forward.step_days", &w.StepDays, defaultWalkStep),
		floatFieldDefault("walk_forward.min_score", &w.MinScore, defaultWalkMinScore),
		stringFieldDefault("walk_forward.report_dir", &w.ReportDir, defaultWalkReportDir),
	)
}

func (o *OptimizerConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		intFieldDefault("optimizer.trials", &o.Trials, defaultOptimizerTrials),
		intFieldDefault("optimizer.timeout_seconds", &o.TimeoutSeconds, defaultOptimizerTimeout),
		floatFieldDefault("optimizer.spread", &o.Spread, defaultOptimizerSpread),
	)
}

// Helper functions

type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return target != nil && *target <= 0 },
		apply: func() { *target = def },
	}
}

func floatFieldDefault(key string, target *float64, def float64) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return target != nil && *target <= 0 },
		apply: func() { *target = def },
	}
}

func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
