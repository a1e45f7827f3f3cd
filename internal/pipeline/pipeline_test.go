package pipeline

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/husnusametd/spectra/internal/market"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMiddleware struct {
	meta MiddlewareMeta
	fn   func(ctx context.Context, ac *AnalysisContext) error
}

func (f fakeMiddleware) Meta() MiddlewareMeta { return f.meta }

func (f fakeMiddleware) Handle(ctx context.Context, ac *AnalysisContext) error {
	return f.fn(ctx, ac)
}

func TestPipeline_RunsStagesInOrder(t *testing.T) {
	var mu sync.Mutex
	var order []string
	record := func(name string) func(context.Context, *AnalysisContext) error {
		return func(context.Context, *AnalysisContext) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		}
	}
	p := New("test",
		fakeMiddleware{meta: MiddlewareMeta{Name: "late", Stage: 2}, fn: record("late")},
		fakeMiddleware{meta: MiddlewareMeta{Name: "early", Stage: 0}, fn: record("early")},
		nil,
	)
	require.NoError(t, p.Run(context.Background(), NewContext(market.Asset{}, "BTCUSDT")))
	assert.Equal(t, []string{"early", "late"}, order)
	assert.Equal(t, []string{"early", "late"}, p.Middlewares())
	assert.Equal(t, "test", p.Name())
}

func TestPipeline_NonCriticalFailureBecomesWarning(t *testing.T) {
	p := New("test",
		fakeMiddleware{meta: MiddlewareMeta{Name: "flaky"}, fn: func(context.Context, *AnalysisContext) error {
			return errors.New("boom")
		}},
		fakeMiddleware{meta: MiddlewareMeta{Name: "ok", Stage: 1}, fn: func(_ context.Context, ac *AnalysisContext) error {
			ac.SetFeature("X", 1)
			return nil
		}},
	)
	ac := NewContext(market.Asset{}, "ETHUSDT")
	require.NoError(t, p.Run(context.Background(), ac))
	require.Len(t, ac.Warnings(), 1)
	assert.Contains(t, ac.Warnings()[0], "flaky")
	v, ok := ac.Feature("X")
	require.True(t, ok)
	assert.Equal(t, 1.0, v)
}

func TestPipeline_CriticalFailureStops(t *testing.T) {
	ran := false
	p := New("test",
		fakeMiddleware{meta: MiddlewareMeta{Name: "source", Critical: true}, fn: func(context.Context, *AnalysisContext) error {
			return ErrInsufficientData
		}},
		fakeMiddleware{meta: MiddlewareMeta{Name: "after", Stage: 1}, fn: func(context.Context, *AnalysisContext) error {
			ran = true
			return nil
		}},
	)
	err := p.Run(context.Background(), NewContext(market.Asset{}, "ETHUSDT"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientData)
	var mwErr *MiddlewareError
	require.ErrorAs(t, err, &mwErr)
	assert.Equal(t, "source", mwErr.Middleware)
	assert.False(t, ran)
}

func TestAnalysisContext_Features(t *testing.T) {
	ac := NewContext(market.Asset{}, "BTCUSDT")
	ac.SetFeature("A", 1)
	ac.SetFeature("NaN", math.NaN())
	_, ok := ac.Feature("NaN")
	assert.False(t, ok)

	snap := ac.Snapshot()
	snap["A"] = 99
	v, _ := ac.Feature("A")
	assert.Equal(t, 1.0, v)

	ac.SetCandles("1H", []market.Candle{{Close: 1}})
	ac.SetCandles("4h", []market.Candle{{Close: 2}})
	assert.Equal(t, []string{"1h", "4h"}, ac.Intervals())
	assert.Len(t, ac.Candles("1h"), 1)
}

func TestBuilder_SeedsUniverseFeatures(t *testing.T) {
	p := New("test", fakeMiddleware{meta: MiddlewareMeta{Name: "noop"}, fn: func(context.Context, *AnalysisContext) error {
		return nil
	}})
	b := NewBuilder(p, "usdt")
	ctx := WithTraceID(context.Background(), "trace-1")
	ac, err := b.Analyze(ctx, market.Asset{Symbol: "btc", Price: 50000, Change24HPct: -2.5, MarketCapRank: 1})
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", ac.Symbol)
	assert.Equal(t, "trace-1", ac.TraceID)

	snap := ac.Snapshot()
	assert.Equal(t, 50000.0, snap[FeaturePrice])
	assert.Equal(t, -2.5, snap[FeatureChange24HPct])
	assert.Equal(t, 1.0, snap[FeatureMarketCapRank])
}

func TestBuilder_WrapsPipelineError(t *testing.T) {
	p := New("test", fakeMiddleware{meta: MiddlewareMeta{Name: "src", Critical: true}, fn: func(context.Context, *AnalysisContext) error {
		return ErrInsufficientData
	}})
	_, err := NewBuilder(p, "").Snapshot(context.Background(), market.Asset{Symbol: "doge"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientData)
	assert.Contains(t, err.Error(), "DOGEUSDT")
}
