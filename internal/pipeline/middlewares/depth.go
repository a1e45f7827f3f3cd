package middlewares

import (
	"context"
	"fmt"
	"time"

	"github.com/husnusametd/spectra/internal/market"
	"github.com/husnusametd/spectra/internal/pipeline"
)

const (
	FeatureOBImbalance   = "OB_Imbalance_USD"
	FeatureLiqCluster    = "Liq_Cluster_USD"
	FeatureLiqProximity  = "Liq_Proximity_Pct"
	defaultDepthSnapshot = 1000
)

type DepthConfig struct {
	Name     string
	Stage    int
	Critical bool
	Timeout  time.Duration
	// Limit is the number of book levels requested.
	Limit int
	// Levels per side counted toward the imbalance.
	Levels int
	// Band is the cluster distance from mid as a fraction.
	Band float64
}

// DepthFeatures derives order-book imbalance and liquidity cluster features.
type DepthFeatures struct {
	meta   pipeline.MiddlewareMeta
	source market.Source
	limit  int
	levels int
	band   float64
}

func NewDepthFeatures(cfg DepthConfig, source market.Source) *DepthFeatures {
	if cfg.Limit <= 0 {
		cfg.Limit = defaultDepthSnapshot
	}
	if cfg.Levels <= 0 {
		cfg.Levels = market.DefaultImbalanceLevels
	}
	if cfg.Band <= 0 {
		cfg.Band = market.DefaultClusterBand
	}
	return &DepthFeatures{
		meta: pipeline.MiddlewareMeta{
			Name:     nameOrDefault(cfg.Name, "orderbook"),
			Stage:    cfg.Stage,
			Critical: cfg.Critical,
			Timeout:  cfg.Timeout,
		},
		source: source,
		limit:  cfg.Limit,
		levels: cfg.Levels,
		band:   cfg.Band,
	}
}

func (m *DepthFeatures) Meta() pipeline.MiddlewareMeta { return m.meta }

func (m *DepthFeatures) Handle(ctx context.Context, ac *pipeline.AnalysisContext) error {
	if m.source == nil {
		return fmt.Errorf("depth source unavailable")
	}
	depth, err := m.source.Depth(ctx, ac.Symbol, m.limit)
	if err != nil {
		return err
	}
	ac.SetDepth(depth)
	if len(depth.Bids) == 0 || len(depth.Asks) == 0 {
		return fmt.Errorf("%w: empty order book for %s", pipeline.ErrInsufficientData, ac.Symbol)
	}
	ac.SetFeature(FeatureOBImbalance, depth.Imbalance(m.levels))
	if usd, prox, ok := depth.LiquidityCluster(m.band); ok {
		ac.SetFeature(FeatureLiqCluster, usd)
		ac.SetFeature(FeatureLiqProximity, prox)
	}
	return nil
}
