package app

import (
	"fmt"
	"strings"

	"github.com/husnusametd/spectra/internal/logger"
)

// StartupSummary is printed once before the scheduler starts.
type StartupSummary struct {
	Env            string
	Universe       string
	Middlewares    []string
	Rules          []string
	DisabledParts  int
	ThresholdsPath string
	Thresholds     int
	ScanTimes      []string
	Notifier       string
	HTTPAddr       string
}

// Print writes the summary through the logger so it also reaches the log file.
func (s *StartupSummary) Print() {
	logger.InfoBlock(s.String())
}

func (s *StartupSummary) String() string {
	var b strings.Builder
	line := strings.Repeat("=", 80)
	fmt.Fprintln(&b, line)
	fmt.Fprintf(&b, "%*s\n", 40+len("STARTUP SUMMARY")/2, "STARTUP SUMMARY")
	fmt.Fprintln(&b, line)
	fmt.Fprintf(&b, "  env:         %s\n", orDash(s.Env))
	fmt.Fprintf(&b, "  universe:    %s\n", orDash(s.Universe))
	fmt.Fprintf(&b, "  pipeline:    %s\n", formatList(s.Middlewares))
	fmt.Fprintf(&b, "  signals:     %s\n", formatList(s.Rules))
	if s.DisabledParts > 0 {
		fmt.Fprintf(&b, "  disabled:    %d sub-formula(s) failed to compile\n", s.DisabledParts)
	}
	fmt.Fprintf(&b, "  thresholds:  %d from %s\n", s.Thresholds, orDash(s.ThresholdsPath))
	fmt.Fprintf(&b, "  scan times:  %s (UTC)\n", formatList(s.ScanTimes))
	fmt.Fprintf(&b, "  notifier:    %s\n", orDash(s.Notifier))
	fmt.Fprintf(&b, "  http:        %s\n", orDash(s.HTTPAddr))
	fmt.Fprintln(&b, line)
	return b.String()
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
