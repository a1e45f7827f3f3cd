package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/husnusametd/spectra/internal/logger"

	"golang.org/x/sync/errgroup"
)

// Pipeline runs middlewares stage by stage.
type Pipeline struct {
	name   string
	stages [][]Middleware
}

// New groups middlewares by stage.
func New(name string, middlewares ...Middleware) *Pipeline {
	if len(middlewares) == 0 {
		return &Pipeline{name: name, stages: nil}
	}
	stageMap := make(map[int][]Middleware)
	for _, mw := range middlewares {
		if mw == nil {
			continue
		}
		meta := mw.Meta()
		stageMap[meta.Stage] = append(stageMap[meta.Stage], mw)
	}
	keys := make([]int, 0, len(stageMap))
	for st := range stageMap {
		keys = append(keys, st)
	}
	sort.Ints(keys)
	stages := make([][]Middleware, 0, len(keys))
	for _, st := range keys {
		stages = append(stages, stageMap[st])
	}
	return &Pipeline{name: name, stages: stages}
}

// Name returns the pipeline name.
func (p *Pipeline) Name() string { return p.name }

// Middlewares lists middleware names in execution order.
func (p *Pipeline) Middlewares() []string {
	var out []string
	for _, stage := range p.stages {
		for _, mw := range stage {
			out = append(out, mw.Meta().Name)
		}
	}
	return out
}

// Run executes every stage in order. A critical middleware failure stops the
// run; other failures are recorded as warnings on ac.
func (p *Pipeline) Run(ctx context.Context, ac *AnalysisContext) error {
	if ac == nil {
		return fmt.Errorf("nil analysis context")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	for _, stage := range p.stages {
		if err := p.runStage(ctx, ac, stage); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) runStage(ctx context.Context, ac *AnalysisContext, stage []Middleware) error {
	if len(stage) == 0 {
		return nil
	}
	group, stageCtx := errgroup.WithContext(ctx)
	warnCh := make(chan *MiddlewareError, len(stage))
	for _, mw := range stage {
		mw := mw
		if mw == nil {
			continue
		}
		group.Go(func() error {
			meta := mw.Meta()
			runCtx := stageCtx
			var cancel context.CancelFunc
			if meta.Timeout > 0 {
				runCtx, cancel = context.WithTimeout(stageCtx, meta.Timeout)
				defer cancel()
			}
			err := mw.Handle(runCtx, ac)
			if err == nil {
				return nil
			}
			wErr := &MiddlewareError{
				Middleware: meta.Name,
				Stage:      meta.Stage,
				Critical:   meta.Critical,
				Err:        err,
			}
			if meta.Critical {
				return wErr
			}
			select {
			case warnCh <- wErr:
			default:
			}
			return nil
		})
	}
	err := group.Wait()
	close(warnCh)
	for warn := range warnCh {
		if warn == nil {
			continue
		}
		ac.AddWarning(warn.Error())
		logger.Debugf("[pipeline] %s %s %s", p.name, ac.Symbol, warn.Error())
	}
	if err == nil {
		return nil
	}
	ac.AddWarning(err.Error())
	return err
}
