package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/husnusametd/spectra/internal/config"
	"github.com/husnusametd/spectra/internal/history"
	"github.com/husnusametd/spectra/internal/logger"
	"github.com/husnusametd/spectra/internal/metrics"
	"github.com/husnusametd/spectra/internal/scanner"
	"github.com/husnusametd/spectra/internal/scheduler"
	"github.com/husnusametd/spectra/internal/signal"
	"github.com/husnusametd/spectra/internal/thresholds"
	statushttp "github.com/husnusametd/spectra/internal/transport/http/status"

	"golang.org/x/sync/errgroup"
)

// App owns the wired components: scanner, scheduler, walk-forward service
// and status server.
type App struct {
	cfg        *config.Config
	scanner    *scanner.Scanner
	dryRunner  *scanner.Scanner
	walk       *WalkService
	thresholds *thresholds.Store
	history    *history.Store
	catalog    *signal.Catalog
	recorder   *metrics.Recorder
	server     *statushttp.Server
	Summary    *StartupSummary

	closers []io.Closer
}

// NewApp builds the application without starting anything.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	return buildAppWithWire(ctx, cfg)
}

// Run starts the status server and the daily scan scheduler and blocks
// until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.Summary != nil {
		a.Summary.Print()
	}
	sched, err := scheduler.NewDailyScheduler(ctx, a.cfg.Scan.Times)
	if err != nil {
		return err
	}
	sched.Name = "scan"
	sched.RunImmediately = a.cfg.Scan.RunImmediately

	group, ctx := errgroup.WithContext(ctx)
	if a.server != nil {
		group.Go(func() error {
			if err := a.server.Start(ctx); err != nil {
				return fmt.Errorf("status http server error: %w", err)
			}
			return nil
		})
	}
	group.Go(func() error {
		sched.Start(func(ctx context.Context) error {
			_, err := a.scanner.RunOnce(ctx)
			return err
		})
		return nil
	})
	return group.Wait()
}

// ScanOnce runs a single cycle. With dryRun the rows are printed rather than
// sent.
func (a *App) ScanOnce(ctx context.Context, dryRun bool) (scanner.Result, error) {
	if dryRun {
		return a.dryRunner.RunOnce(ctx)
	}
	return a.scanner.RunOnce(ctx)
}

// Walk runs the walk-forward evaluation.
func (a *App) Walk(ctx context.Context, opts WalkOptions) (WalkOutcome, error) {
	return a.walk.Run(ctx, opts)
}

func (a *App) Thresholds() *thresholds.Store { return a.thresholds }

func (a *App) History() *history.Store { return a.history }

func (a *App) Catalog() *signal.Catalog { return a.catalog }

func (a *App) Config() *config.Config { return a.cfg }

// Close releases files and databases opened during Build.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		logger.Warnf("[app] close: %v", err)
		return err
	}
	return nil
}
