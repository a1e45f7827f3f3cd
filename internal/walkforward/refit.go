package walkforward

import (
	"context"

	"github.com/husnusametd/spectra/internal/logger"
	"github.com/husnusametd/spectra/internal/optimizer"
	"github.com/husnusametd/spectra/internal/signal"
	"github.com/husnusametd/spectra/internal/thresholds"
)

// OptimizerRefitter refits by maximising the Sharpe score of the training
// slice. It never persists anything.
type OptimizerRefitter struct {
	Optimizer      optimizer.Optimizer
	Returns        ReturnFunc
	PeriodsPerYear float64
}

func (r OptimizerRefitter) Refit(ctx context.Context, train []Point, current thresholds.Set) (thresholds.Set, error) {
	if len(train) == 0 {
		logger.Warnf("[walkforward] empty training slice, keeping current thresholds")
		return current, nil
	}
	returns := r.Returns
	if returns == nil {
		returns = RecordedReturns
	}
	objective := func(_ context.Context, params thresholds.Set) (float64, error) {
		out := make([]float64, len(train))
		for i, p := range train {
			out[i] = returns(p, params)
		}
		return Sharpe(out, r.PeriodsPerYear), nil
	}
	res, err := r.Optimizer.Optimize(ctx, current, objective)
	if err != nil {
		return nil, err
	}
	logger.Debugf("[walkforward] refit %d trials, in-sample score %.3f, timed out=%v", res.Trials, res.Score, res.TimedOut)
	return res.Params, nil
}

// SignalReturns keeps a bar's return only when some rule in the catalog is
// satisfied under the candidate thresholds. Bars recorded without features
// keep their stored return.
func SignalReturns(catalog *signal.Catalog) ReturnFunc {
	return func(p Point, th thresholds.Set) float64 {
		if len(p.Features) == 0 {
			return p.Return
		}
		if _, ok := signal.FirstSatisfied(catalog.Evaluate(p.Features, th)); ok {
			return p.Return
		}
		return 0
	}
}
