package thresholds

import (
	"regexp"
	"sort"
	"strings"
)

var refPattern = regexp.MustCompile(`cfg\.([A-Za-z0-9_]+)`)

// ScanRefs finds cfg.<name> references in raw formula text. It also sees
// formulas that fail to compile, which is what seeding needs.
func ScanRefs(texts ...string) []string {
	seen := make(map[string]struct{})
	for _, text := range texts {
		for _, m := range refPattern.FindAllStringSubmatch(text, -1) {
			seen[m[1]] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// DefaultValue picks a starting value from the parameter name.
func DefaultValue(name string) float64 {
	switch {
	case strings.Contains(name, "overbought"):
		return 70
	case strings.Contains(name, "oversold"):
		return 30
	case strings.Contains(name, "zscore"):
		return 1.5
	case strings.Contains(name, "bb_width"):
		return 0.04
	default:
		return 1
	}
}

// Defaults seeds every name with DefaultValue.
func Defaults(names []string) Set {
	out := make(Set, len(names))
	for _, name := range names {
		out[name] = DefaultValue(name)
	}
	return out
}

// MergeMissing returns current plus every key of defaults it lacks, and the
// sorted names that were added. current is not modified.
func MergeMissing(current, defaults Set) (Set, []string) {
	merged := current.Clone()
	var added []string
	for k, v := range defaults {
		if _, ok := merged[k]; ok {
			continue
		}
		merged[k] = v
		added = append(added, k)
	}
	sort.Strings(added)
	return merged, added
}
