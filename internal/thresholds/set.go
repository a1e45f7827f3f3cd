// Package thresholds owns the numeric parameters referenced by rules as
// cfg.<name>: the on-disk store, copy-on-write snapshots and default seeding.
package thresholds

import (
	"math"
	"sort"
)

// Set maps a threshold name to its value. Treat a Set obtained from a Store
// as read-only; Clone before changing it.
type Set map[string]float64

// Clone returns an independent copy. The clone of a nil Set is empty, not nil.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Keys returns the names in lexical order.
func (s Set) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Missing returns the names in refs that s does not define, in ref order.
func (s Set) Missing(refs []string) []string {
	var out []string
	for _, name := range refs {
		if _, ok := s[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}

// Diff lists keys whose values differ between s and other, including keys
// present on one side only.
func (s Set) Diff(other Set) []string {
	seen := make(map[string]struct{}, len(s)+len(other))
	var out []string
	check := func(k string) {
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		a, okA := s[k]
		b, okB := other[k]
		if okA != okB || !sameFloat(a, b) {
			out = append(out, k)
		}
	}
	for k := range s {
		check(k)
	}
	for k := range other {
		check(k)
	}
	sort.Strings(out)
	return out
}

func sameFloat(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return a == b
}
