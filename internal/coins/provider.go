package coins

import (
	"context"
	"errors"
	"strings"

	"github.com/husnusametd/spectra/internal/market"
)

// NormalizeSymbols upper-cases, trims and de-duplicates base symbols. A quote
// suffix such as USDT is stripped so BTC and BTCUSDT name the same asset.
func NormalizeSymbols(symbols []string, quote string) ([]string, error) {
	if len(symbols) == 0 {
		return nil, errors.New("symbol list is empty")
	}
	quote = strings.ToUpper(strings.TrimSpace(quote))
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if quote != "" && s != quote {
			s = strings.TrimSuffix(s, quote)
		}
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, errors.New("symbol list is empty after normalization")
	}
	return out, nil
}

// Static is a fixed universe; rank follows list order. Prices are left at
// zero and the feature pipeline falls back to the last close.
type Static struct {
	symbols []string
	quote   string
}

func NewStatic(symbols []string, quote string) *Static {
	return &Static{symbols: symbols, quote: quote}
}

func (p *Static) TopAssets(_ context.Context) ([]market.Asset, error) {
	syms, err := NormalizeSymbols(p.symbols, p.quote)
	if err != nil {
		return nil, err
	}
	out := make([]market.Asset, len(syms))
	for i, s := range syms {
		out[i] = market.Asset{ID: strings.ToLower(s), Symbol: strings.ToLower(s), Name: s, MarketCapRank: i + 1}
	}
	return out, nil
}

// Filtered drops excluded base symbols (stablecoins, wrapped assets) from
// another universe.
type Filtered struct {
	inner   market.Universe
	exclude map[string]struct{}
}

func NewFiltered(inner market.Universe, exclude []string) *Filtered {
	set := make(map[string]struct{}, len(exclude))
	for _, s := range exclude {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			set[s] = struct{}{}
		}
	}
	return &Filtered{inner: inner, exclude: set}
}

func (f *Filtered) TopAssets(ctx context.Context) ([]market.Asset, error) {
	assets, err := f.inner.TopAssets(ctx)
	if err != nil || len(f.exclude) == 0 {
		return assets, err
	}
	out := assets[:0:0]
	for _, a := range assets {
		if _, skip := f.exclude[strings.ToUpper(a.Symbol)]; skip {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}
