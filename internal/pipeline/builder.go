package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/husnusametd/spectra/internal/market"
)

// Universe-level features seeded before the pipeline runs.
const (
	FeaturePrice         = "Price"
	FeatureChange24HPct  = "Change_24H_Pct"
	FeatureMarketCapRank = "Market_Cap_Rank"
)

type traceKey struct{}

// WithTraceID tags ctx so analysis contexts carry the scan's trace id.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceKey{}, id)
}

// TraceID returns the id set by WithTraceID.
func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}

// Builder produces the flat feature snapshot of one asset.
type Builder struct {
	pipeline *Pipeline
	quote    string
}

func NewBuilder(p *Pipeline, quote string) *Builder {
	if quote == "" {
		quote = "USDT"
	}
	return &Builder{pipeline: p, quote: strings.ToUpper(quote)}
}

// Snapshot runs the pipeline for asset and returns its features. Features
// that could not be computed are absent.
func (b *Builder) Snapshot(ctx context.Context, asset market.Asset) (map[string]float64, error) {
	ac, err := b.Analyze(ctx, asset)
	if err != nil {
		return nil, err
	}
	return ac.Snapshot(), nil
}

// Analyze runs the pipeline and returns the full context, warnings included.
func (b *Builder) Analyze(ctx context.Context, asset market.Asset) (*AnalysisContext, error) {
	if b == nil || b.pipeline == nil {
		return nil, fmt.Errorf("pipeline: builder not initialised")
	}
	ac := NewContext(asset, asset.Pair(b.quote))
	ac.TraceID = TraceID(ctx)
	if asset.Price > 0 {
		ac.SetFeature(FeaturePrice, asset.Price)
	}
	ac.SetFeature(FeatureChange24HPct, asset.Change24HPct)
	if asset.MarketCapRank > 0 {
		ac.SetFeature(FeatureMarketCapRank, float64(asset.MarketCapRank))
	}
	if err := b.pipeline.Run(ctx, ac); err != nil {
		return ac, fmt.Errorf("analyze %s: %w", ac.Symbol, err)
	}
	return ac, nil
}
