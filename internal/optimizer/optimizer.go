// Package optimizer searches a neighbourhood of the current thresholds for
// the set that maximises a caller-supplied objective.
package optimizer

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/husnusametd/spectra/internal/logger"
	"github.com/husnusametd/spectra/internal/thresholds"
)

const (
	DefaultTrials  = 200
	DefaultTimeout = 30 * time.Minute
	DefaultSpread  = 0.5
)

// Objective scores one candidate parameter set; higher is better. A NaN
// score discards the candidate. An error aborts the search.
type Objective func(ctx context.Context, params thresholds.Set) (float64, error)

// Result is the best candidate found.
type Result struct {
	Params   thresholds.Set
	Score    float64
	Trials   int
	TimedOut bool
	Elapsed  time.Duration
}

// Optimizer refits thresholds against an objective.
type Optimizer interface {
	Optimize(ctx context.Context, current thresholds.Set, objective Objective) (Result, error)
}

// Config bounds a RandomSearch.
type Config struct {
	Trials  int
	Timeout time.Duration
	// Spread is the relative half-width of the search interval around each
	// current value.
	Spread float64
	// Keys restricts the search to these names. Other keys are returned as is.
	Keys []string
	// Seed makes the search reproducible. Zero seeds from the clock.
	Seed uint64
}

// RandomSearch samples every searched parameter uniformly in
// [v*(1-Spread), v*(1+Spread)]. The first trial always scores the current
// values, so the result is never worse than the starting point.
type RandomSearch struct {
	cfg Config
	now func() time.Time
}

// NewRandomSearch fills zero fields of cfg with the defaults.
func NewRandomSearch(cfg Config) *RandomSearch {
	if cfg.Trials <= 0 {
		cfg.Trials = DefaultTrials
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Spread <= 0 {
		cfg.Spread = DefaultSpread
	}
	return &RandomSearch{cfg: cfg, now: time.Now}
}

// Config returns the effective configuration.
func (s *RandomSearch) Config() Config { return s.cfg }

// Optimize runs until the trial budget is spent, the timeout elapses or ctx
// is done. Running out of time is not an error: the best candidate so far
// is returned with TimedOut set. Result.Params holds exactly the keys of
// current.
func (s *RandomSearch) Optimize(ctx context.Context, current thresholds.Set, objective Objective) (Result, error) {
	if objective == nil {
		return Result{}, fmt.Errorf("optimizer: nil objective")
	}
	start := s.now()
	deadline := start.Add(s.cfg.Timeout)
	rng := rand.New(rand.NewPCG(s.seed(), 0x9e3779b97f4a7c15))
	keys := s.searchKeys(current)

	res := Result{Params: current.Clone(), Score: math.Inf(-1)}
	for trial := 0; trial < s.cfg.Trials; trial++ {
		if trial > 0 && (ctx.Err() != nil || s.now().After(deadline)) {
			res.TimedOut = true
			break
		}
		candidate := current.Clone()
		if trial > 0 {
			for _, k := range keys {
				candidate[k] = s.sample(rng, current[k])
			}
		}
		score, err := objective(ctx, candidate)
		res.Trials++
		if err != nil {
			return Result{}, fmt.Errorf("optimizer: trial %d: %w", trial, err)
		}
		if math.IsNaN(score) {
			continue
		}
		if score > res.Score {
			res.Score = score
			res.Params = candidate
			logger.Debugf("[optimizer] trial %d improved score to %.4f", trial, score)
		}
	}
	if math.IsInf(res.Score, -1) {
		res.Score = math.NaN()
	}
	res.Elapsed = s.now().Sub(start)
	if res.TimedOut {
		logger.Warnf("[optimizer] budget exhausted after %d trials, keeping best so far", res.Trials)
	}
	return res, nil
}

func (s *RandomSearch) seed() uint64 {
	if s.cfg.Seed != 0 {
		return s.cfg.Seed
	}
	return uint64(time.Now().UnixNano())
}

func (s *RandomSearch) searchKeys(current thresholds.Set) []string {
	if len(s.cfg.Keys) == 0 {
		return current.Keys()
	}
	keys := make([]string, 0, len(s.cfg.Keys))
	for _, k := range s.cfg.Keys {
		if _, ok := current[k]; ok {
			keys = append(keys, k)
		}
	}
	return keys
}

func (s *RandomSearch) sample(rng *rand.Rand, v float64) float64 {
	lo, hi := Bounds(v, s.cfg.Spread)
	return lo + rng.Float64()*(hi-lo)
}

// Bounds returns the ordered search interval for v.
func Bounds(v, spread float64) (float64, float64) {
	lo, hi := v*(1-spread), v*(1+spread)
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo, hi
}
