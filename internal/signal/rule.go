package signal

import (
	"fmt"
	"strings"
)

// Rule is a named pair of optional sub-formulas. A missing sub-formula is
// vacuously satisfied.
type Rule struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Primary     string `yaml:"primary,omitempty" json:"primary,omitempty"`
	Confirm     string `yaml:"confirm,omitempty" json:"confirm,omitempty"`
}

// Conviction grades a verdict by which sub-formulas held.
type Conviction uint8

const (
	ConvictionLow Conviction = iota
	ConvictionMedium
	ConvictionHigh
)

const (
	primaryPoints = 2
	confirmPoints = 1
)

// convictionFor maps a score to a grade: 3 High, 2 Medium, anything else Low.
func convictionFor(score int) Conviction {
	switch {
	case score >= primaryPoints+confirmPoints:
		return ConvictionHigh
	case score == primaryPoints:
		return ConvictionMedium
	default:
		return ConvictionLow
	}
}

func (c Conviction) String() string {
	switch c {
	case ConvictionHigh:
		return "High"
	case ConvictionMedium:
		return "Medium"
	default:
		return "Low"
	}
}

func (c Conviction) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Conviction) UnmarshalText(b []byte) error {
	parsed, err := ParseConviction(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseConviction accepts the grade names case-insensitively.
func ParseConviction(s string) (Conviction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return ConvictionHigh, nil
	case "medium":
		return ConvictionMedium, nil
	case "low":
		return ConvictionLow, nil
	default:
		return ConvictionLow, fmt.Errorf("unknown conviction %q", s)
	}
}

// Verdict is the outcome of one rule against one snapshot.
type Verdict struct {
	Name       string     `json:"name"`
	Satisfied  bool       `json:"satisfied"`
	Conviction Conviction `json:"conviction"`
	Score      int        `json:"score"`
	// Err is set when a sub-formula failed at runtime; the verdict is then
	// unsatisfied and Low.
	Err error `json:"-"`
}

// FirstSatisfied picks the verdict acted upon when several rules hold:
// catalog order is priority.
func FirstSatisfied(verdicts []Verdict) (Verdict, bool) {
	for _, v := range verdicts {
		if v.Satisfied {
			return v, true
		}
	}
	return Verdict{}, false
}

// Satisfied filters verdicts to the rules that held, keeping order.
func Satisfied(verdicts []Verdict) []Verdict {
	out := make([]Verdict, 0, len(verdicts))
	for _, v := range verdicts {
		if v.Satisfied {
			out = append(out, v)
		}
	}
	return out
}
