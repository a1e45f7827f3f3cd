// Package coingecko fetches the market-cap ranked scan universe.
package coingecko

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/husnusametd/spectra/internal/logger"
	"github.com/husnusametd/spectra/internal/market"
	"github.com/husnusametd/spectra/internal/pkg/circuit"
)

const defaultBaseURL = "https://api.coingecko.com/api/v3"

type Config struct {
	BaseURL    string
	VsCurrency string
	PerPage    int
	Pages      int
	// APIKey is sent as x-cg-demo-api-key when set.
	APIKey      string
	HTTPTimeout time.Duration
	RPS         float64
}

func (c Config) withDefaults() Config {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.VsCurrency == "" {
		c.VsCurrency = "usd"
	}
	if c.PerPage <= 0 || c.PerPage > 250 {
		c.PerPage = 250
	}
	if c.Pages <= 0 {
		c.Pages = 2
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 30 * time.Second
	}
	if c.RPS <= 0 {
		c.RPS = 0.5
	}
	return c
}

// Client implements market.Universe over the /coins/markets endpoint.
type Client struct {
	cfg   Config
	http  *http.Client
	guard *circuit.Guard
}

func New(cfg Config) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		cfg:   cfg,
		http:  &http.Client{Timeout: cfg.HTTPTimeout},
		guard: circuit.New(circuit.Settings{Name: "coingecko", Failures: 3, Cooldown: time.Minute, RPS: cfg.RPS, Burst: 1}),
	}
}

// TopAssets fetches Pages pages of PerPage assets ordered by market cap.
// A failing page after the first is logged and the assets gathered so far
// are returned.
func (c *Client) TopAssets(ctx context.Context) ([]market.Asset, error) {
	out := make([]market.Asset, 0, c.cfg.PerPage*c.cfg.Pages)
	for page := 1; page <= c.cfg.Pages; page++ {
		assets, err := c.fetchPage(ctx, page)
		if err != nil {
			if page == 1 || ctx.Err() != nil {
				return nil, err
			}
			logger.Warnf("[coingecko] page %d failed, keeping %d assets: %v", page, len(out), err)
			break
		}
		out = append(out, assets...)
		if len(assets) < c.cfg.PerPage {
			break
		}
	}
	logger.Infof("[coingecko] fetched %d assets", len(out))
	return out, nil
}

func (c *Client) fetchPage(ctx context.Context, page int) ([]market.Asset, error) {
	q := url.Values{}
	q.Set("vs_currency", c.cfg.VsCurrency)
	q.Set("order", "market_cap_desc")
	q.Set("per_page", strconv.Itoa(c.cfg.PerPage))
	q.Set("page", strconv.Itoa(page))
	q.Set("sparkline", "false")
	endpoint := c.cfg.BaseURL + "/coins/markets?" + q.Encode()

	var body []byte
	err := c.guard.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		if c.cfg.APIKey != "" {
			req.Header.Set("x-cg-demo-api-key", c.cfg.APIKey)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode/100 != 2 {
			return fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(body), 200))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("coingecko markets page %d: %w", page, err)
	}
	return ParseMarkets(body)
}

// ParseMarkets decodes a /coins/markets payload. Entries without a symbol or
// price are skipped.
func ParseMarkets(body []byte) ([]market.Asset, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("coingecko: invalid JSON payload")
	}
	root := gjson.ParseBytes(body)
	if !root.IsArray() {
		return nil, fmt.Errorf("coingecko: expected array, got %s", root.Type)
	}
	var out []market.Asset
	root.ForEach(func(_, item gjson.Result) bool {
		symbol := strings.TrimSpace(item.Get("symbol").String())
		price := item.Get("current_price")
		if symbol == "" || !price.Exists() || price.Type == gjson.Null {
			return true
		}
		out = append(out, market.Asset{
			ID:            item.Get("id").String(),
			Symbol:        symbol,
			Name:          item.Get("name").String(),
			Price:         price.Float(),
			MarketCap:     item.Get("market_cap").Float(),
			MarketCapRank: int(item.Get("market_cap_rank").Int()),
			Change24HPct:  item.Get("price_change_percentage_24h").Float(),
			Volume24H:     item.Get("total_volume").Float(),
		})
		return true
	})
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
