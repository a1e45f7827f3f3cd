package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/husnusametd/spectra/internal/logger"
)

// Task is one scheduled run. A returned error is logged; the loop goes on.
type Task func(ctx context.Context) error

// DailyScheduler runs a task at fixed UTC times of day.
type DailyScheduler struct {
	Name           string
	RunImmediately bool

	offsets []time.Duration
	ctx     context.Context
	nowFn   func() time.Time
}

// NewDailyScheduler parses times ("HH:MM", UTC).
func NewDailyScheduler(ctx context.Context, times []string) (*DailyScheduler, error) {
	offsets, err := ParseTimes(times)
	if err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return &DailyScheduler{
		Name:    "scan",
		offsets: offsets,
		ctx:     ctx,
		nowFn:   time.Now,
	}, nil
}

// ParseTimes turns "HH:MM" strings into sorted, de-duplicated offsets from
// midnight.
func ParseTimes(times []string) ([]time.Duration, error) {
	if len(times) == 0 {
		return nil, fmt.Errorf("scheduler: no run times")
	}
	seen := make(map[time.Duration]struct{}, len(times))
	out := make([]time.Duration, 0, len(times))
	for _, raw := range times {
		t, err := time.Parse("15:04", strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("scheduler: invalid time %q: %w", raw, err)
		}
		off := time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute
		if _, dup := seen[off]; dup {
			continue
		}
		seen[off] = struct{}{}
		out = append(out, off)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// NextRun returns the first scheduled time strictly after now, rolling to
// the next day when today's times have passed.
func (s *DailyScheduler) NextRun(now time.Time) time.Time {
	return nextRun(s.offsets, now)
}

func nextRun(offsets []time.Duration, now time.Time) time.Time {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	for _, off := range offsets {
		if at := midnight.Add(off); at.After(now) {
			return at
		}
	}
	return midnight.AddDate(0, 0, 1).Add(offsets[0])
}

// Start blocks until ctx is done.
func (s *DailyScheduler) Start(task Task) {
	if s == nil {
		return
	}
	if task == nil {
		logger.Warnf("[scheduler] %s: task is nil, exit", s.Name)
		return
	}
	if len(s.offsets) == 0 {
		logger.Warnf("[scheduler] %s: no run times, exit", s.Name)
		return
	}
	if s.nowFn == nil {
		s.nowFn = time.Now
	}
	startAt := s.nowFn().UTC()
	logger.Infof("[scheduler] %s: started times=%s run_immediately=%v at=%s",
		s.Name, s.Times(), s.RunImmediately, startAt.Format(time.RFC3339))

	if s.RunImmediately {
		s.run(task)
	}
	for {
		now := s.nowFn().UTC()
		next := s.NextRun(now)
		logger.Infof("[scheduler] %s: next run %s (in %s) | uptime=%s",
			s.Name, next.Format(time.RFC3339), next.Sub(now).Truncate(time.Second), now.Sub(startAt).Truncate(time.Second))
		if !s.waitUntil(next) {
			return
		}
		s.run(task)
	}
}

// Times returns the configured times as HH:MM.
func (s *DailyScheduler) Times() []string {
	out := make([]string, len(s.offsets))
	for i, off := range s.offsets {
		out[i] = fmt.Sprintf("%02d:%02d", int(off.Hours()), int(off.Minutes())%60)
	}
	return out
}

func (s *DailyScheduler) run(task Task) {
	started := s.nowFn()
	if err := task(s.ctx); err != nil {
		logger.Errorf("[scheduler] %s: run failed after %s: %v", s.Name, s.nowFn().Sub(started).Truncate(time.Millisecond), err)
		return
	}
	logger.Debugf("[scheduler] %s: run finished in %s", s.Name, s.nowFn().Sub(started).Truncate(time.Millisecond))
}

func (s *DailyScheduler) waitUntil(target time.Time) bool {
	wait := target.Sub(s.nowFn().UTC())
	if wait <= 0 {
		select {
		case <-s.ctx.Done():
			logger.Infof("[scheduler] %s: ctx done, exit", s.Name)
			return false
		default:
			return true
		}
	}
	timer := time.NewTimer(wait)
	select {
	case <-s.ctx.Done():
		timer.Stop()
		logger.Infof("[scheduler] %s: ctx done, exit", s.Name)
		return false
	case <-timer.C:
		return true
	}
}
