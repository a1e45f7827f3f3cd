// Package circuit guards outbound REST calls with a rate limiter and a
// circuit breaker.
package circuit

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/husnusametd/spectra/internal/logger"
)

// ErrOpen is returned while the breaker rejects calls.
var ErrOpen = gobreaker.ErrOpenState

type Settings struct {
	Name string
	// Failures is the number of consecutive failures that opens the breaker.
	Failures uint32
	// Cooldown is how long the breaker stays open before probing.
	Cooldown time.Duration
	// RPS and Burst configure the token bucket. RPS <= 0 disables limiting.
	RPS   float64
	Burst int
	// OnStateChange, when set, replaces the default warning log.
	OnStateChange func(name string, from, to string)
}

func (s Settings) withDefaults() Settings {
	if s.Failures == 0 {
		s.Failures = 5
	}
	if s.Cooldown <= 0 {
		s.Cooldown = 30 * time.Second
	}
	if s.Burst <= 0 {
		s.Burst = 1
	}
	return s
}

// Guard is safe for concurrent use.
type Guard struct {
	name    string
	cb      *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

func New(s Settings) *Guard {
	s = s.withDefaults()
	g := &Guard{name: s.Name}
	if s.RPS > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(s.RPS), s.Burst)
	}
	failures := s.Failures
	hook := s.OnStateChange
	g.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Timeout:     s.Cooldown,
		ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= failures },
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if hook != nil {
				hook(name, from.String(), to.String())
				return
			}
			logger.Warnf("[circuit] %s state change: %s -> %s", name, from, to)
		},
	})
	return g
}

// Do waits for a rate token and runs fn through the breaker. Cancellation
// does not count as a failure.
func (g *Guard) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	_, err := g.cb.Execute(func() (any, error) {
		return nil, fn(ctx)
	})
	return err
}

// State returns "closed", "open" or "half-open".
func (g *Guard) State() string { return g.cb.State().String() }

func (g *Guard) Name() string { return g.name }
