package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/husnusametd/spectra/internal/logger"
)

// validate runs basic sanity checks after defaults are applied.
func validate(c *Config) error {
	if _, err := logger.ParseLevel(c.App.LogLevel); err != nil {
		return fmt.Errorf("app.log_level: %w", err)
	}
	if err := c.Market.validate(); err != nil {
		return err
	}
	if err := c.Universe.validate(); err != nil {
		return err
	}
	if err := c.Features.validate(); err != nil {
		return err
	}
	if err := c.Scan.validate(); err != nil {
		return err
	}
	if err := c.Notify.validate(); err != nil {
		return err
	}
	if err := c.WalkForward.validate(); err != nil {
		return err
	}
	if c.Optimizer.Trials <= 0 {
		return fmt.Errorf("optimizer.trials must be > 0")
	}
	if c.Optimizer.Spread <= 0 {
		return fmt.Errorf("optimizer.spread must be > 0")
	}
	return nil
}

func (m *MarketConfig) validate() error {
	if strings.TrimSpace(m.RESTBaseURL) == "" {
		return fmt.Errorf("market.rest_base_url cannot be empty")
	}
	if m.Quote == "" {
		return fmt.Errorf("market.quote cannot be empty")
	}
	if m.Proxy.Enabled && m.Proxy.URL == "" {
		return fmt.Errorf("market.proxy.url is required when proxy is enabled")
	}
	return nil
}

func (u *UniverseConfig) validate() error {
	switch u.Source {
	case UniverseCoinGecko:
		if u.CoinGecko.PerPage > 250 {
			return fmt.Errorf("universe.coingecko.per_page must be <= 250")
		}
	case UniverseStatic:
		if len(u.Symbols) == 0 {
			return fmt.Errorf("universe.symbols is required when source is static")
		}
	default:
		return fmt.Errorf("universe.source must be %q or %q, got %q", UniverseCoinGecko, UniverseStatic, u.Source)
	}
	return nil
}

func (f *FeaturesConfig) validate() error {
	for i, mw := range f.Middlewares {
		name := strings.TrimSpace(mw.Name)
		if name == "" {
			return fmt.Errorf("features.middlewares[%d] missing name", i)
		}
		if mw.Stage < 0 {
			return fmt.Errorf("features.middlewares[%d] stage must be >= 0", i)
		}
	}
	return nil
}

func (s *ScanConfig) validate() error {
	for _, t := range s.Times {
		if _, err := time.Parse("15:04", strings.TrimSpace(t)); err != nil {
			return fmt.Errorf("scan.times entry %q must be HH:MM", t)
		}
	}
	if s.TickSize <= 0 {
		return fmt.Errorf("scan.tick_size must be > 0")
	}
	if s.StopATR < 0 || s.TP1ATR < 0 || s.TP2ATR < 0 {
		return fmt.Errorf("scan stop/take-profit multipliers must be >= 0")
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	if n.Telegram.Enabled {
		if strings.TrimSpace(n.Telegram.BotToken) == "" || strings.TrimSpace(n.Telegram.ChatID) == "" {
			return fmt.Errorf("notify.telegram requires bot_token and chat_id when enabled")
		}
	}
	return nil
}

func (w *WalkForwardConfig) validate() error {
	if w.LookbackDays <= 0 || w.StepDays <= 0 {
		return fmt.Errorf("walk_forward.lookback_days and step_days must be > 0")
	}
	return nil
}
