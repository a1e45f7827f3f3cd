package market

import "strings"

// Asset is one entry of the scan universe.
type Asset struct {
	ID            string  `json:"id"`
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Price         float64 `json:"current_price"`
	MarketCap     float64 `json:"market_cap"`
	MarketCapRank int     `json:"market_cap_rank"`
	Change24HPct  float64 `json:"price_change_percentage_24h"`
	Volume24H     float64 `json:"total_volume"`
}

// Pair returns the exchange ticker for the asset against quote, e.g. BTCUSDT.
func (a Asset) Pair(quote string) string {
	return strings.ToUpper(strings.TrimSpace(a.Symbol)) + strings.ToUpper(quote)
}
