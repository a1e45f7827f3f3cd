// Package formula compiles the signal rule language into reusable predicates.
//
// A rule reads like
//
//	Price_4H > EMA21_4H & Price_4H < EMA50_4H
//	Vol_Z_1H > cfg.vol_z_breakout_1h | RSI_4H < 30
//
// Bare names resolve against a feature snapshot (missing names are null) and
// cfg.<name> resolves against the threshold mapping (missing names are an
// error). Nothing else is reachable from an expression.
package formula

import (
	"errors"
	"fmt"
)

// CompileError reports a malformed expression.
type CompileError struct {
	Expr string
	Pos  int
	Msg  string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("formula: compile %q at offset %d: %s", e.Expr, e.Pos, e.Msg)
}

// EvaluationError reports a runtime failure of a compiled predicate.
type EvaluationError struct {
	Expr string
	Err  error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("formula: evaluate %q: %v", e.Expr, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }

// Predicate is a compiled expression. It holds no mutable state and may be
// shared between goroutines.
type Predicate struct {
	expr       string
	root       Node
	features   []string
	thresholds []string
}

// Compile parses expr once; the returned predicate can be evaluated any
// number of times.
func Compile(expr string) (*Predicate, error) {
	root, err := Parse(expr)
	if err != nil {
		return nil, err
	}
	return &Predicate{
		expr:       expr,
		root:       root,
		features:   collectNames(root, false),
		thresholds: collectNames(root, true),
	}, nil
}

// MustCompile is Compile that panics on error. Intended for fixtures.
func MustCompile(expr string) *Predicate {
	p, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return p
}

// Eval evaluates the predicate against a feature snapshot and thresholds.
// Either map may be nil.
func (p *Predicate) Eval(features, thresholds map[string]float64) (v Value, err error) {
	if p == nil || p.root == nil {
		return Null(), &EvaluationError{Err: errors.New("nil predicate")}
	}
	defer func() {
		if r := recover(); r != nil {
			v, err = Null(), &EvaluationError{Expr: p.expr, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	v, err = p.root.eval(&env{features: features, thresholds: thresholds})
	if err != nil {
		return Null(), &EvaluationError{Expr: p.expr, Err: err}
	}
	return v, nil
}

// Test evaluates the predicate and coerces the result to a boolean.
func (p *Predicate) Test(features, thresholds map[string]float64) (bool, error) {
	v, err := p.Eval(features, thresholds)
	if err != nil {
		return false, err
	}
	return v.Truthy(), nil
}

// Expr returns the source text.
func (p *Predicate) Expr() string { return p.expr }

// Root returns the parsed tree.
func (p *Predicate) Root() Node { return p.root }

// FeatureRefs lists feature names in order of first appearance.
func (p *Predicate) FeatureRefs() []string { return append([]string(nil), p.features...) }

// ThresholdRefs lists cfg.<name> names in order of first appearance.
func (p *Predicate) ThresholdRefs() []string { return append([]string(nil), p.thresholds...) }

// Evaluate compiles and evaluates expr in one step.
func Evaluate(expr string, features, thresholds map[string]float64) (Value, error) {
	p, err := Compile(expr)
	if err != nil {
		return Null(), err
	}
	return p.Eval(features, thresholds)
}
