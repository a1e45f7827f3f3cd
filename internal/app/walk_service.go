package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/husnusametd/spectra/internal/config"
	"github.com/husnusametd/spectra/internal/logger"
	"github.com/husnusametd/spectra/internal/optimizer"
	"github.com/husnusametd/spectra/internal/report"
	"github.com/husnusametd/spectra/internal/signal"
	"github.com/husnusametd/spectra/internal/thresholds"
	"github.com/husnusametd/spectra/internal/walkforward"
)

// HistoryLoader returns the recorded return series of a symbol.
type HistoryLoader interface {
	Load(ctx context.Context, symbol, timeframe string) ([]walkforward.Point, error)
}

// ThresholdStore is the part of the threshold store a walk-forward run
// reads from and, after a passing run, writes to.
type ThresholdStore interface {
	Values() thresholds.Set
	Replace(values thresholds.Set) error
}

// WalkRecorder receives run outcomes.
type WalkRecorder interface {
	ObserveWalkForward(symbol, timeframe string, median float64, passed bool)
}

type WalkServiceConfig struct {
	WalkForward config.WalkForwardConfig
	Optimizer   config.OptimizerConfig
	Out         io.Writer
}

// WalkOptions override the configured run. Zero fields keep the config
// value; a nil MinScore keeps walk_forward.min_score.
type WalkOptions struct {
	Symbol       string
	Timeframe    string
	LookbackDays int
	StepDays     int
	MinScore     *float64
	// HTML writes the echarts page and CSV writes the window records into
	// the report directory.
	HTML bool
	CSV  bool
	// Persist stores the thresholds of the last window when the gate passes.
	Persist bool
}

// WalkOutcome is a finished run and the files it produced.
type WalkOutcome struct {
	Report    walkforward.Report
	ChartPath string
	CSVPath   string
	Persisted bool
}

// WalkService runs walk-forward evaluations over recorded history.
type WalkService struct {
	cfg     WalkServiceConfig
	history HistoryLoader
	catalog *signal.Catalog
	store   ThresholdStore
	rec     WalkRecorder

	mu     sync.RWMutex
	latest *walkforward.Report
}

func NewWalkService(cfg WalkServiceConfig, history HistoryLoader, catalog *signal.Catalog, store ThresholdStore, rec WalkRecorder) *WalkService {
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	return &WalkService{cfg: cfg, history: history, catalog: catalog, store: store, rec: rec}
}

// LatestWalk returns the last completed run.
func (s *WalkService) LatestWalk() (walkforward.Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return walkforward.Report{}, false
	}
	return *s.latest, true
}

func (s *WalkService) resolve(opts WalkOptions) WalkOptions {
	wf := s.cfg.WalkForward
	if strings.TrimSpace(opts.Symbol) == "" {
		opts.Symbol = wf.Symbol
	}
	opts.Symbol = strings.ToUpper(strings.TrimSpace(opts.Symbol))
	if strings.TrimSpace(opts.Timeframe) == "" {
		opts.Timeframe = wf.Timeframe
	}
	opts.Timeframe = strings.ToLower(strings.TrimSpace(opts.Timeframe))
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = wf.LookbackDays
	}
	if opts.StepDays <= 0 {
		opts.StepDays = wf.StepDays
	}
	if opts.MinScore == nil {
		minScore := wf.MinScore
		opts.MinScore = &minScore
	}
	return opts
}

// Run loads history, walks it with an optimizer refit per slide, prints
// the table and applies the gate. Thresholds are only written when the run
// passes and opts.Persist is set.
func (s *WalkService) Run(ctx context.Context, opts WalkOptions) (WalkOutcome, error) {
	opts = s.resolve(opts)
	points, err := s.history.Load(ctx, opts.Symbol, opts.Timeframe)
	if err != nil {
		return WalkOutcome{}, err
	}
	periods := walkforward.PeriodsPerYear(opts.Timeframe)
	returns := walkforward.SignalReturns(s.catalog)
	search := optimizer.NewRandomSearch(optimizer.Config{
		Trials:  s.cfg.Optimizer.Trials,
		Timeout: s.cfg.Optimizer.Timeout(),
		Spread:  s.cfg.Optimizer.Spread,
		Keys:    s.catalog.ThresholdRefs(),
		Seed:    s.cfg.Optimizer.Seed,
	})
	wcfg := walkforward.Config{
		Lookback:       walkforward.Days(opts.LookbackDays),
		Step:           walkforward.Days(opts.StepDays),
		PeriodsPerYear: periods,
		Baseline:       s.store.Values(),
		Refitter: walkforward.OptimizerRefitter{
			Optimizer:      search,
			Returns:        returns,
			PeriodsPerYear: periods,
		},
		Returns: returns,
	}
	logger.Infof("[walkforward] %s %s: %d points, lookback=%dd step=%dd", opts.Symbol, opts.Timeframe, len(points), opts.LookbackDays, opts.StepDays)
	records, err := walkforward.Run(ctx, points, wcfg)
	if err != nil {
		return WalkOutcome{}, err
	}

	rep := walkforward.NewReport(opts.Symbol, opts.Timeframe, wcfg, *opts.MinScore, records)
	out := WalkOutcome{Report: rep}
	if err := report.WriteWalkTable(s.cfg.Out, rep); err != nil {
		return out, err
	}
	if s.rec != nil {
		s.rec.ObserveWalkForward(rep.Symbol, rep.Timeframe, rep.Median, rep.Passed)
	}
	s.mu.Lock()
	s.latest = &rep
	s.mu.Unlock()

	base := fmt.Sprintf("walkforward_%s_%s_%s", rep.Symbol, rep.Timeframe, rep.GeneratedAt.Format("20060102T150405"))
	if opts.HTML {
		if out.ChartPath, err = report.WriteWalkChart(s.cfg.WalkForward.ReportDir, base+".html", rep); err != nil {
			return out, fmt.Errorf("write walk-forward chart: %w", err)
		}
		logger.Infof("[walkforward] chart written to %s", out.ChartPath)
	}
	if opts.CSV {
		if out.CSVPath, err = writeCSV(s.cfg.WalkForward.ReportDir, base+".csv", rep.Records); err != nil {
			return out, fmt.Errorf("write walk-forward csv: %w", err)
		}
		logger.Infof("[walkforward] records written to %s", out.CSVPath)
	}

	if !rep.Passed {
		logger.Warnf("[walkforward] %s %s failed the gate: median %.2f < %.2f", rep.Symbol, rep.Timeframe, rep.Median, rep.MinScore)
		return out, nil
	}
	if !opts.Persist {
		return out, nil
	}
	latest, ok := rep.Latest()
	if !ok {
		return out, nil
	}
	if err := s.store.Replace(latest.Thresholds); err != nil {
		return out, fmt.Errorf("persist thresholds: %w", err)
	}
	out.Persisted = true
	logger.Infof("[walkforward] persisted %d thresholds fitted on window %d (%s)",
		len(latest.Thresholds), latest.Index, latest.TrainEnd.Format(time.DateOnly))
	return out, nil
}

func writeCSV(dir, name string, records []walkforward.WindowRecord) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := report.WriteWalkCSV(f, records); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}
