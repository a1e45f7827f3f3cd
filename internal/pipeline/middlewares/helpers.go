package middlewares

import (
	"fmt"
	"strings"

	"github.com/husnusametd/spectra/internal/market"
	"github.com/husnusametd/spectra/internal/pipeline"
)

func closes(candles []market.Candle) []float64 {
	return market.Candles(candles).Closes()
}

func nameOrDefault(val, fallback string) string {
	if val = strings.TrimSpace(val); val != "" {
		return val
	}
	return fallback
}

func normInterval(iv, fallback string) string {
	iv = strings.ToLower(strings.TrimSpace(iv))
	if iv == "" {
		return fallback
	}
	return iv
}

// FeatureName suffixes a feature with its timeframe, e.g. EMA21 + 4h gives
// EMA21_4H.
func FeatureName(prefix, interval string) string {
	return prefix + "_" + strings.ToUpper(strings.TrimSpace(interval))
}

func insufficient(name, interval string, need, got int) error {
	return fmt.Errorf("%w: %s %s need %d candles, got %d", pipeline.ErrInsufficientData, name, interval, need, got)
}
