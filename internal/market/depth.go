package market

import "math"

// DefaultImbalanceLevels is how many book levels per side count toward the
// imbalance.
const DefaultImbalanceLevels = 50

// DefaultClusterBand is the distance from mid, as a fraction, within which
// resting liquidity counts as a cluster.
const DefaultClusterBand = 0.005

// Level is one price level of the book.
type Level struct {
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
}

// Notional returns price times quantity.
func (l Level) Notional() float64 { return l.Price * l.Quantity }

// Depth is an order-book snapshot. Bids are best (highest) first, asks best
// (lowest) first.
type Depth struct {
	Symbol string  `json:"symbol"`
	Bids   []Level `json:"bids"`
	Asks   []Level `json:"asks"`
}

// Mid returns the midpoint of the best bid and ask.
func (d Depth) Mid() (float64, bool) {
	if len(d.Bids) == 0 || len(d.Asks) == 0 {
		return 0, false
	}
	return (d.Bids[0].Price + d.Asks[0].Price) / 2, true
}

// Imbalance returns |bid USD - ask USD| over the first levels of each side.
func (d Depth) Imbalance(levels int) float64 {
	if levels <= 0 {
		levels = DefaultImbalanceLevels
	}
	return math.Abs(sumNotional(d.Bids, levels) - sumNotional(d.Asks, levels))
}

// LiquidityCluster sums the USD resting within band of mid on both sides and
// returns it with the distance, in percent of mid, of the level in that band
// closest to mid.
func (d Depth) LiquidityCluster(band float64) (clusterUSD, proximityPct float64, ok bool) {
	mid, ok := d.Mid()
	if !ok || mid <= 0 {
		return 0, 0, false
	}
	if band <= 0 {
		band = DefaultClusterBand
	}
	lo, hi := mid*(1-band), mid*(1+band)
	nearest := -1.0
	for _, side := range [][]Level{d.Bids, d.Asks} {
		for _, lvl := range side {
			if lvl.Price < lo || lvl.Price > hi {
				continue
			}
			clusterUSD += lvl.Notional()
			if nearest < 0 || math.Abs(lvl.Price-mid) < math.Abs(nearest-mid) {
				nearest = lvl.Price
			}
		}
	}
	if nearest < 0 {
		return 0, 0, true
	}
	return clusterUSD, math.Abs(nearest-mid) / mid * 100, true
}

func sumNotional(levels []Level, n int) float64 {
	if n > len(levels) {
		n = len(levels)
	}
	total := 0.0
	for _, lvl := range levels[:n] {
		total += lvl.Notional()
	}
	return total
}
