package signal

import (
	"errors"
	"fmt"
	"strings"

	"github.com/husnusametd/spectra/internal/formula"
	"github.com/husnusametd/spectra/internal/logger"
)

var (
	// ErrEmptyCatalog means no rules were supplied.
	ErrEmptyCatalog = errors.New("signal: empty rule catalog")
	// ErrDuplicateRule means two rules share a name.
	ErrDuplicateRule = errors.New("signal: duplicate rule name")
)

// Part names a sub-formula of a rule.
type Part string

const (
	PartPrimary Part = "primary"
	PartConfirm Part = "confirm"
)

// RuleError attributes a compile failure to one rule's sub-formula.
type RuleError struct {
	Rule string
	Part Part
	Err  error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("signal %s (%s): %v", e.Rule, e.Part, e.Err)
}

func (e *RuleError) Unwrap() error { return e.Err }

// CompiledRule holds the predicates of one rule. A nil predicate is absent,
// either because the rule left it blank or because it failed to compile.
type CompiledRule struct {
	Name    string
	Primary *formula.Predicate
	Confirm *formula.Predicate
}

// ErrorHook observes runtime failures of a rule.
type ErrorHook func(rule string, err error)

// Option customises a Catalog.
type Option func(*Catalog)

// WithErrorHook registers fn to be called for every evaluation failure in
// place of the default warning log.
func WithErrorHook(fn ErrorHook) Option {
	return func(c *Catalog) { c.onError = fn }
}

// Catalog is an ordered, immutable set of compiled rules. Order is priority.
// It is safe for concurrent use.
type Catalog struct {
	rules   []CompiledRule
	onError ErrorHook
}

// Compile builds a catalog. Sub-formulas that fail to compile are disabled
// and reported in the returned slice; the rest of the catalog stays usable.
// The error is non-nil only when the catalog as a whole is unusable.
func Compile(rules []Rule, opts ...Option) (*Catalog, []*RuleError, error) {
	if len(rules) == 0 {
		return nil, nil, ErrEmptyCatalog
	}
	c := &Catalog{rules: make([]CompiledRule, 0, len(rules))}
	for _, opt := range opts {
		opt(c)
	}
	seen := make(map[string]struct{}, len(rules))
	var ruleErrs []*RuleError
	for idx, r := range rules {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			return nil, nil, fmt.Errorf("signal: rule #%d has no name", idx+1)
		}
		if _, dup := seen[name]; dup {
			return nil, nil, fmt.Errorf("%w: %s", ErrDuplicateRule, name)
		}
		seen[name] = struct{}{}

		compiled := CompiledRule{Name: name}
		var err *RuleError
		if compiled.Primary, err = compilePart(name, PartPrimary, r.Primary); err != nil {
			ruleErrs = append(ruleErrs, err)
		}
		if compiled.Confirm, err = compilePart(name, PartConfirm, r.Confirm); err != nil {
			ruleErrs = append(ruleErrs, err)
		}
		c.rules = append(c.rules, compiled)
	}
	for _, e := range ruleErrs {
		logger.Errorf("[signal] %v; sub-formula disabled", e)
	}
	return c, ruleErrs, nil
}

func compilePart(name string, part Part, expr string) (*formula.Predicate, *RuleError) {
	if strings.TrimSpace(expr) == "" {
		return nil, nil
	}
	p, err := formula.Compile(expr)
	if err != nil {
		return nil, &RuleError{Rule: name, Part: part, Err: err}
	}
	return p, nil
}

// Len returns the number of rules.
func (c *Catalog) Len() int { return len(c.rules) }

// Rules returns a copy of the compiled rules in priority order.
func (c *Catalog) Rules() []CompiledRule {
	return append([]CompiledRule(nil), c.rules...)
}

// Names returns rule names in priority order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.rules))
	for i, r := range c.rules {
		out[i] = r.Name
	}
	return out
}

// ThresholdRefs lists every cfg.<name> used by an enabled sub-formula.
func (c *Catalog) ThresholdRefs() []string {
	return c.collect(func(p *formula.Predicate) []string { return p.ThresholdRefs() })
}

// FeatureRefs lists every feature used by an enabled sub-formula.
func (c *Catalog) FeatureRefs() []string {
	return c.collect(func(p *formula.Predicate) []string { return p.FeatureRefs() })
}

func (c *Catalog) collect(fn func(*formula.Predicate) []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range c.rules {
		for _, p := range []*formula.Predicate{r.Primary, r.Confirm} {
			if p == nil {
				continue
			}
			for _, name := range fn(p) {
				if _, ok := seen[name]; ok {
					continue
				}
				seen[name] = struct{}{}
				out = append(out, name)
			}
		}
	}
	return out
}

// Evaluate runs every rule against one snapshot and threshold mapping and
// returns one verdict per rule in catalog order. A failing rule never aborts
// the others.
func (c *Catalog) Evaluate(snapshot, thresholds map[string]float64) []Verdict {
	out := make([]Verdict, len(c.rules))
	for i, r := range c.rules {
		out[i] = c.evaluateRule(r, snapshot, thresholds)
	}
	return out
}

func (c *Catalog) evaluateRule(r CompiledRule, snapshot, thresholds map[string]float64) Verdict {
	primaryOK, primaryErr := testPart(r.Primary, snapshot, thresholds)
	confirmOK, confirmErr := testPart(r.Confirm, snapshot, thresholds)
	if err := errors.Join(primaryErr, confirmErr); err != nil {
		if c.onError != nil {
			c.onError(r.Name, err)
		} else {
			logger.Warnf("[signal] %s evaluation failed: %v", r.Name, err)
		}
		return Verdict{Name: r.Name, Conviction: ConvictionLow, Err: err}
	}

	score := 0
	if r.Primary != nil && primaryOK {
		score += primaryPoints
	}
	if r.Confirm != nil && confirmOK {
		score += confirmPoints
	}
	return Verdict{
		Name:       r.Name,
		Satisfied:  primaryOK && confirmOK,
		Conviction: convictionFor(score),
		Score:      score,
	}
}

func testPart(p *formula.Predicate, snapshot, thresholds map[string]float64) (bool, error) {
	if p == nil {
		return true, nil
	}
	return p.Test(snapshot, thresholds)
}
