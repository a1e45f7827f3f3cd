package app

import (
	"fmt"

	"github.com/husnusametd/spectra/internal/logger"
	"github.com/husnusametd/spectra/internal/signal"
	"github.com/husnusametd/spectra/internal/thresholds"
)

// GenerateThresholds seeds a default value for every cfg.<name> the rule
// spec references, including formulas that do not compile.
func GenerateThresholds(specPath string) (thresholds.Set, error) {
	rules, err := signal.LoadSpec(specPath)
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(rules)*2)
	for _, r := range rules {
		texts = append(texts, r.Primary, r.Confirm)
	}
	return thresholds.Defaults(thresholds.ScanRefs(texts...)), nil
}

// MergeThresholds adds generated defaults for every missing name to the
// store at path. Existing values are kept; the previous file is backed up
// before writing.
func MergeThresholds(specPath, path string) ([]string, error) {
	defaults, err := GenerateThresholds(specPath)
	if err != nil {
		return nil, err
	}
	store, err := thresholds.Open(path)
	if err != nil {
		return nil, err
	}
	added, err := store.Merge(defaults)
	if err != nil {
		return nil, fmt.Errorf("merge thresholds: %w", err)
	}
	if len(added) == 0 {
		logger.Infof("[thresholds] %s already defines all %d referenced names", path, len(defaults))
	}
	return added, nil
}
