package pipeline

import (
	"context"
	"errors"
	"time"
)

// ErrInsufficientData marks a middleware that could not compute its
// features from the data at hand.
var ErrInsufficientData = errors.New("pipeline: insufficient data")

// Middleware is one feature extraction step.
type Middleware interface {
	Meta() MiddlewareMeta
	Handle(ctx context.Context, ac *AnalysisContext) error
}

// MiddlewareMeta carries scheduling information. Middlewares of the same
// stage run concurrently; stages run in ascending order.
type MiddlewareMeta struct {
	Name     string
	Stage    int
	Critical bool
	Timeout  time.Duration
}

// MiddlewareError wraps a middleware failure.
type MiddlewareError struct {
	Middleware string
	Stage      int
	Critical   bool
	Err        error
}

func (e *MiddlewareError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return e.Middleware
	}
	return e.Middleware + ": " + e.Err.Error()
}

func (e *MiddlewareError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
