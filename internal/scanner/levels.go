package scanner

import (
	"math"

	"github.com/shopspring/decimal"
)

// Default level parameters.
const (
	DefaultTickSize = 0.0001
	DefaultStopATR  = 0.8
	DefaultTP1ATR   = 1.6
	DefaultTP2ATR   = 3.0
)

// Levels derives stop and take-profit prices from an ATR value. When the
// snapshot has no usable ATRFeature the 24h move is used as a proxy:
// |change%| / 100 * price.
type Levels struct {
	TickSize   float64
	ATRFeature string
	StopATR    float64
	TP1ATR     float64
	TP2ATR     float64
}

func (l Levels) withDefaults() Levels {
	if l.TickSize <= 0 {
		l.TickSize = DefaultTickSize
	}
	if l.StopATR <= 0 {
		l.StopATR = DefaultStopATR
	}
	if l.TP1ATR <= 0 {
		l.TP1ATR = DefaultTP1ATR
	}
	if l.TP2ATR <= 0 {
		l.TP2ATR = DefaultTP2ATR
	}
	return l
}

// ATR picks the feature value or falls back to the proxy.
func (l Levels) ATR(price, change24hPct float64, snapshot map[string]float64) float64 {
	if l.ATRFeature != "" {
		if v, ok := snapshot[l.ATRFeature]; ok && v > 0 && !math.IsInf(v, 0) {
			return v
		}
	}
	return math.Abs(change24hPct) / 100 * price
}

// Compute returns stop and targets floored to the tick size.
func (l Levels) Compute(price, atr float64) (sl, tp1, tp2 float64) {
	l = l.withDefaults()
	p := decimal.NewFromFloat(price)
	a := decimal.NewFromFloat(atr)
	tick := decimal.NewFromFloat(l.TickSize)
	level := func(mult float64) float64 {
		return floorTo(p.Add(decimal.NewFromFloat(mult).Mul(a)), tick)
	}
	return level(-l.StopATR), level(l.TP1ATR), level(l.TP2ATR)
}

// FloorToTick rounds v down to a multiple of tick using decimal arithmetic
// so that 0.3 stays 0.3 rather than 0.2999.
func FloorToTick(v, tick float64) float64 {
	if tick <= 0 {
		return v
	}
	return floorTo(decimal.NewFromFloat(v), decimal.NewFromFloat(tick))
}

func floorTo(v, tick decimal.Decimal) float64 {
	return v.Div(tick).Floor().Mul(tick).InexactFloat64()
}
