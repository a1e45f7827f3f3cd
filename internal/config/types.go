package config

import (
	"strings"
	"time"
)

// Config is the root of the spectra configuration file.
type Config struct {
	App         AppConfig         `yaml:"app"`
	Market      MarketConfig      `yaml:"market"`
	Universe    UniverseConfig    `yaml:"universe"`
	Features    FeaturesConfig    `yaml:"features"`
	Scan        ScanConfig        `yaml:"scan"`
	Signals     SignalsConfig     `yaml:"signals"`
	Thresholds  ThresholdsConfig  `yaml:"thresholds"`
	Notify      NotifyConfig      `yaml:"notify"`
	WalkForward WalkForwardConfig `yaml:"walk_forward"`
	Optimizer   OptimizerConfig   `yaml:"optimizer"`
	History     HistoryConfig     `yaml:"history"`
}

type AppConfig struct {
	Env              string `yaml:"env"`
	LogLevel         string `yaml:"log_level"`
	LogDir           string `yaml:"log_dir"`
	LogRetentionDays int    `yaml:"log_retention_days"`
	HTTPAddr         string `yaml:"http_addr"`
}

type MarketConfig struct {
	RESTBaseURL            string      `yaml:"rest_base_url"`
	Quote                  string      `yaml:"quote"`
	HTTPTimeoutSeconds     int         `yaml:"http_timeout_seconds"`
	RPS                    float64     `yaml:"rps"`
	Burst                  int         `yaml:"burst"`
	BreakerFailures        int         `yaml:"breaker_failures"`
	BreakerCooldownSeconds int         `yaml:"breaker_cooldown_seconds"`
	Proxy                  ProxyConfig `yaml:"proxy"`
}

func (m MarketConfig) HTTPTimeout() time.Duration {
	return time.Duration(m.HTTPTimeoutSeconds) * time.Second
}

func (m MarketConfig) BreakerCooldown() time.Duration {
	return time.Duration(m.BreakerCooldownSeconds) * time.Second
}

type ProxyConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

func (p *ProxyConfig) normalize() {
	p.URL = strings.TrimSpace(p.URL)
	if p.URL == "" {
		p.Enabled = false
	}
}

const (
	UniverseCoinGecko = "coingecko"
	UniverseStatic    = "static"
)

type UniverseConfig struct {
	Source    string          `yaml:"source"`
	Symbols   []string        `yaml:"symbols"`
	Exclude   []string        `yaml:"exclude"`
	CoinGecko CoinGeckoConfig `yaml:"coingecko"`
}

type CoinGeckoConfig struct {
	URL        string  `yaml:"url"`
	VsCurrency string  `yaml:"vs_currency"`
	PerPage    int     `yaml:"per_page"`
	Pages      int     `yaml:"pages"`
	APIKey     string  `yaml:"api_key"`
	RPS        float64 `yaml:"rps"`
}

// FeaturesConfig lists the feature pipeline middlewares. Empty means the
// built-in set.
type FeaturesConfig struct {
	Middlewares []MiddlewareConfig `yaml:"middlewares"`
}

// MiddlewareConfig configures one pipeline node. Name selects the
// implementation.
type MiddlewareConfig struct {
	Name           string         `yaml:"name"`
	Stage          int            `yaml:"stage"`
	Critical       bool           `yaml:"critical"`
	TimeoutSeconds int            `yaml:"timeout_seconds"`
	Params         map[string]any `yaml:"params"`
}

type ScanConfig struct {
	// Times are HH:MM in UTC.
	Times          []string `yaml:"times"`
	RunImmediately bool     `yaml:"run_immediately"`
	Concurrency    int      `yaml:"concurrency"`
	TickSize       float64  `yaml:"tick_size"`
	ATRFeature     string   `yaml:"atr_feature"`
	StopATR        float64  `yaml:"stop_atr"`
	TP1ATR         float64  `yaml:"tp1_atr"`
	TP2ATR         float64  `yaml:"tp2_atr"`
}

type SignalsConfig struct {
	SpecPath string `yaml:"spec_path"`
}

type ThresholdsConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

type NotifyConfig struct {
	Subject  string         `yaml:"subject"`
	Telegram TelegramConfig `yaml:"telegram"`
	SMTP     SMTPConfig     `yaml:"smtp"`
}

type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

type SMTPConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	User     string   `yaml:"user"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from_addr"`
	To       []string `yaml:"to_addr"`
}

type WalkForwardConfig struct {
	Symbol       string  `yaml:"symbol"`
	Timeframe    string  `yaml:"timeframe"`
	LookbackDays int     `yaml:"lookback_days"`
	StepDays     int     `yaml:"step_days"`
	MinScore     float64 `yaml:"min_score"`
	ReportDir    string  `yaml:"report_dir"`
}

type OptimizerConfig struct {
	Trials         int     `yaml:"trials"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	Spread         float64 `yaml:"spread"`
	Seed           uint64  `yaml:"seed"`
}

func (o OptimizerConfig) Timeout() time.Duration {
	return time.Duration(o.TimeoutSeconds) * time.Second
}

type HistoryConfig struct {
	Dir string `yaml:"dir"`
}

type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}
