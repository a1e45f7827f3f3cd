// Package walkforward fits thresholds on a trailing window and scores them
// on the window that immediately follows, sliding forward until the data
// runs out.
package walkforward

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/husnusametd/spectra/internal/logger"
	"github.com/husnusametd/spectra/internal/thresholds"
)

var (
	// ErrEmptySeries means there is no history to walk over.
	ErrEmptySeries = errors.New("walkforward: empty series")
	// ErrInvalidWindow means lookback or step is not positive.
	ErrInvalidWindow = errors.New("walkforward: lookback and step must be positive")
)

// Day is the unit lookback and step are usually expressed in.
const Day = 24 * time.Hour

// Days converts a day count to a duration.
func Days(n int) time.Duration { return time.Duration(n) * Day }

// Point is one bar of history: the strategy return for the bar and,
// optionally, the feature snapshot rules were evaluated against.
type Point struct {
	Time     time.Time
	Return   float64
	Features map[string]float64
}

// WindowRecord describes one slide. Train is [TrainStart, TrainEnd) and test
// is [TestStart, TestEnd) with TestStart == TrainEnd.
type WindowRecord struct {
	Index      int            `json:"index"`
	TrainStart time.Time      `json:"train_start"`
	TrainEnd   time.Time      `json:"train_end"`
	TestStart  time.Time      `json:"test_start"`
	TestEnd    time.Time      `json:"test_end"`
	TrainRows  int            `json:"train_rows"`
	TestRows   int            `json:"test_rows"`
	OOSScore   float64        `json:"oos_score"`
	Thresholds thresholds.Set `json:"thresholds,omitempty"`
}

// Refitter estimates thresholds from a training slice. current is a private
// copy the implementation may modify; the result must not alias shared state.
type Refitter interface {
	Refit(ctx context.Context, train []Point, current thresholds.Set) (thresholds.Set, error)
}

// RefitFunc adapts a function to Refitter.
type RefitFunc func(ctx context.Context, train []Point, current thresholds.Set) (thresholds.Set, error)

func (f RefitFunc) Refit(ctx context.Context, train []Point, current thresholds.Set) (thresholds.Set, error) {
	return f(ctx, train, current)
}

// ReturnFunc gives the return of a bar under a threshold set.
type ReturnFunc func(p Point, th thresholds.Set) float64

// RecordedReturns ignores thresholds and uses the stored return.
func RecordedReturns(p Point, _ thresholds.Set) float64 { return p.Return }

// Config parameterises Run.
type Config struct {
	Lookback       time.Duration
	Step           time.Duration
	PeriodsPerYear float64
	// Baseline is the starting point of every slide's refit. It is never
	// modified.
	Baseline thresholds.Set
	// Refitter defaults to keeping the baseline.
	Refitter Refitter
	// Returns defaults to RecordedReturns.
	Returns ReturnFunc
}

// Run walks the series. Slides whose test window would extend past the last
// timestamp are not evaluated, so a series shorter than Lookback+Step yields
// no records and no error. Records produced before a failure are returned
// with the error.
func Run(ctx context.Context, series []Point, cfg Config) ([]WindowRecord, error) {
	if len(series) == 0 {
		return nil, ErrEmptySeries
	}
	if cfg.Lookback <= 0 || cfg.Step <= 0 {
		return nil, ErrInvalidWindow
	}
	if cfg.PeriodsPerYear <= 0 {
		cfg.PeriodsPerYear = PeriodsPerYear("")
	}
	if cfg.Returns == nil {
		cfg.Returns = RecordedReturns
	}
	points := sortedCopy(series)
	first, last := points[0].Time, points[len(points)-1].Time
	baseline := cfg.Baseline.Clone()

	var records []WindowRecord
	for idx := 0; ; idx++ {
		trainStart := first.Add(time.Duration(idx) * cfg.Step)
		trainEnd := trainStart.Add(cfg.Lookback)
		testEnd := trainEnd.Add(cfg.Step)
		if testEnd.After(last) {
			break
		}
		if err := ctx.Err(); err != nil {
			return records, err
		}

		train := window(points, trainStart, trainEnd)
		test := window(points, trainEnd, testEnd)

		fitted := baseline.Clone()
		if cfg.Refitter != nil {
			out, err := cfg.Refitter.Refit(ctx, train, baseline.Clone())
			if err != nil {
				return records, fmt.Errorf("walkforward: refit window %d: %w", idx, err)
			}
			fitted = out.Clone()
		}

		returns := make([]float64, len(test))
		for i, p := range test {
			returns[i] = cfg.Returns(p, fitted)
		}
		rec := WindowRecord{
			Index:      idx,
			TrainStart: trainStart,
			TrainEnd:   trainEnd,
			TestStart:  trainEnd,
			TestEnd:    testEnd,
			TrainRows:  len(train),
			TestRows:   len(test),
			OOSScore:   Sharpe(returns, cfg.PeriodsPerYear),
			Thresholds: fitted,
		}
		logger.Debugf("[walkforward] window %d train=[%s,%s) rows=%d test=[%s,%s) rows=%d oos=%.3f",
			idx, trainStart.Format(time.DateOnly), trainEnd.Format(time.DateOnly), rec.TrainRows,
			trainEnd.Format(time.DateOnly), testEnd.Format(time.DateOnly), rec.TestRows, rec.OOSScore)
		records = append(records, rec)
	}
	if median, ok := Median(Scores(records)); ok {
		logger.Infof("[walkforward] %d windows, median OOS score %.2f", len(records), median)
	} else {
		logger.Warnf("[walkforward] series spans less than lookback+step, no window evaluated")
	}
	return records, nil
}

func sortedCopy(series []Point) []Point {
	out := append([]Point(nil), series...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}

// window returns points with from <= t < to. points must be sorted.
func window(points []Point, from, to time.Time) []Point {
	lo := sort.Search(len(points), func(i int) bool { return !points[i].Time.Before(from) })
	hi := sort.Search(len(points), func(i int) bool { return !points[i].Time.Before(to) })
	return points[lo:hi]
}
