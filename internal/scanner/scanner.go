// Package scanner runs one scan cycle: universe, feature snapshots, rule
// verdicts, report rows and delivery.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/husnusametd/spectra/internal/gateway/notifier"
	"github.com/husnusametd/spectra/internal/logger"
	"github.com/husnusametd/spectra/internal/market"
	"github.com/husnusametd/spectra/internal/metrics"
	"github.com/husnusametd/spectra/internal/pipeline"
	"github.com/husnusametd/spectra/internal/report"
	"github.com/husnusametd/spectra/internal/signal"
	"github.com/husnusametd/spectra/internal/thresholds"
)

const (
	DefaultConcurrency = 8
	DefaultSubject     = "[Spectra] Crypto Signal Report"
)

// SnapshotBuilder produces the flat feature map of one asset.
type SnapshotBuilder interface {
	Snapshot(ctx context.Context, asset market.Asset) (map[string]float64, error)
}

// Evaluator runs the rule catalog.
type Evaluator interface {
	Evaluate(snapshot, thresholds map[string]float64) []signal.Verdict
}

// ThresholdSource hands out the current threshold values.
type ThresholdSource interface {
	Values() thresholds.Set
}

// Recorder receives cycle statistics.
type Recorder interface {
	ObserveScan(metrics.ScanStats)
}

type Config struct {
	Concurrency int
	Levels      Levels
	Subject     string
	// DryRun prints the rows to Out instead of notifying.
	DryRun bool
	Out    io.Writer
}

// Deps are the collaborators of a Scanner. Notifier and Recorder may be nil.
type Deps struct {
	Universe   market.Universe
	Builder    SnapshotBuilder
	Rules      Evaluator
	Thresholds ThresholdSource
	Notifier   notifier.Notifier
	Recorder   Recorder
}

// Result is the outcome of one cycle.
type Result struct {
	TraceID    string       `json:"trace_id"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Universe   int          `json:"universe"`
	Evaluated  int          `json:"evaluated"`
	Skipped    int          `json:"skipped"`
	Rows       []report.Row `json:"rows"`
	DryRun     bool         `json:"dry_run"`
	Notified   bool         `json:"notified"`
}

// Scanner is safe for concurrent use; overlapping RunOnce calls each get
// their own result and the later finisher becomes Latest.
type Scanner struct {
	cfg  Config
	deps Deps

	nowFn func() time.Time

	mu     sync.RWMutex
	latest *Result
}

func New(cfg Config, deps Deps) (*Scanner, error) {
	if deps.Universe == nil || deps.Builder == nil || deps.Rules == nil || deps.Thresholds == nil {
		return nil, fmt.Errorf("scanner: universe, builder, rules and thresholds are required")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if strings.TrimSpace(cfg.Subject) == "" {
		cfg.Subject = DefaultSubject
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	cfg.Levels = cfg.Levels.withDefaults()
	return &Scanner{cfg: cfg, deps: deps, nowFn: time.Now}, nil
}

// Latest returns the last completed cycle.
func (s *Scanner) Latest() (Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return Result{}, false
	}
	out := *s.latest
	out.Rows = append([]report.Row(nil), s.latest.Rows...)
	return out, true
}

type candidate struct {
	order int
	row   report.Row
}

// RunOnce executes one cycle. Assets whose snapshot fails are skipped; only
// a universe failure, cancellation or a delivery failure is returned.
func (s *Scanner) RunOnce(ctx context.Context) (res Result, err error) {
	res = Result{
		TraceID:   uuid.NewString(),
		StartedAt: s.nowFn().UTC(),
		DryRun:    s.cfg.DryRun,
	}
	defer func() { s.observe(res, err) }()

	ctx = pipeline.WithTraceID(ctx, res.TraceID)
	assets, err := s.deps.Universe.TopAssets(ctx)
	if err != nil {
		return res, fmt.Errorf("scan %s: universe: %w", res.TraceID, err)
	}
	res.Universe = len(assets)
	th := s.deps.Thresholds.Values()
	logger.Infof("[scanner] %s start assets=%d thresholds=%d concurrency=%d", res.TraceID, len(assets), len(th), s.cfg.Concurrency)

	var (
		mu         sync.Mutex
		candidates []candidate
		evaluated  int
		skipped    int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, asset := range assets {
		g.Go(func() error {
			row, ok, err := s.scanAsset(gctx, asset, th)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				skipped++
				return nil
			}
			evaluated++
			if ok {
				if row.Rank <= 0 {
					row.Rank = i + 1
				}
				candidates = append(candidates, candidate{order: i, row: row})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, fmt.Errorf("scan %s: %w", res.TraceID, err)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].order < candidates[j].order })
	res.Rows = make([]report.Row, len(candidates))
	for i, c := range candidates {
		res.Rows[i] = c.row
	}
	res.Evaluated, res.Skipped = evaluated, skipped
	res.FinishedAt = s.nowFn().UTC()
	logger.Infof("[scanner] %s done evaluated=%d skipped=%d signals=%d in %s",
		res.TraceID, evaluated, skipped, len(res.Rows), res.FinishedAt.Sub(res.StartedAt).Truncate(time.Millisecond))

	if err := s.deliver(ctx, &res); err != nil {
		s.store(res)
		return res, err
	}
	s.store(res)
	return res, nil
}

func (s *Scanner) scanAsset(ctx context.Context, asset market.Asset, th thresholds.Set) (report.Row, bool, error) {
	snapshot, err := s.deps.Builder.Snapshot(ctx, asset)
	if err != nil {
		if errors.Is(err, pipeline.ErrInsufficientData) {
			logger.Debugf("[scanner] skip %s: %v", asset.Symbol, err)
		} else {
			logger.Warnf("[scanner] skip %s: %v", asset.Symbol, err)
		}
		return report.Row{}, false, err
	}
	verdict, ok := signal.FirstSatisfied(s.deps.Rules.Evaluate(snapshot, th))
	if !ok {
		return report.Row{}, false, nil
	}
	price := asset.Price
	if v, ok := snapshot[pipeline.FeaturePrice]; ok && v > 0 {
		price = v
	}
	if price <= 0 {
		logger.Warnf("[scanner] %s satisfied %s but has no price", asset.Symbol, verdict.Name)
		return report.Row{}, false, nil
	}
	atr := s.cfg.Levels.ATR(price, asset.Change24HPct, snapshot)
	sl, tp1, tp2 := s.cfg.Levels.Compute(price, atr)
	return report.Row{
		Rank:       asset.MarketCapRank,
		Ticker:     strings.ToUpper(asset.Symbol),
		Signal:     verdict.Name,
		Conviction: verdict.Conviction.String(),
		Entry:      price,
		SL:         sl,
		TP1:        tp1,
		TP2:        tp2,
		TS:         s.nowFn().UTC().Truncate(time.Second),
	}, true, nil
}

func (s *Scanner) deliver(ctx context.Context, res *Result) error {
	if s.cfg.DryRun {
		return report.WriteRows(s.cfg.Out, res.Rows)
	}
	if s.deps.Notifier == nil {
		return nil
	}
	msg, err := report.ScanMessage(s.cfg.Subject, res.Rows, res.FinishedAt)
	if err != nil {
		return fmt.Errorf("scan %s: %w", res.TraceID, err)
	}
	if err := s.deps.Notifier.Send(ctx, msg); err != nil {
		logger.Errorf("[scanner] %s notify via %s failed: %v", res.TraceID, s.deps.Notifier.Name(), err)
		return fmt.Errorf("scan %s: notify: %w", res.TraceID, err)
	}
	res.Notified = true
	logger.Infof("[scanner] %s report sent via %s rows=%d", res.TraceID, s.deps.Notifier.Name(), len(res.Rows))
	return nil
}

func (s *Scanner) store(res Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = &res
}

func (s *Scanner) observe(res Result, err error) {
	if s.deps.Recorder == nil {
		return
	}
	end := res.FinishedAt
	if end.IsZero() {
		end = s.nowFn().UTC()
	}
	stats := metrics.ScanStats{
		Duration:  end.Sub(res.StartedAt),
		Evaluated: res.Evaluated,
		Skipped:   res.Skipped,
		Err:       err,
	}
	for _, r := range res.Rows {
		stats.Signals = append(stats.Signals, [2]string{r.Signal, r.Conviction})
	}
	s.deps.Recorder.ObserveScan(stats)
}
