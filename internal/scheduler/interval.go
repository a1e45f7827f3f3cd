package scheduler

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// KlineIntervals are the futures kline intervals the market source accepts,
// shortest first. Monthly bars are left out: feature names upper-case the
// interval, so 1M would collide with 1m.
var KlineIntervals = []string{"1m", "3m", "5m", "15m", "30m", "1h", "2h", "4h", "6h", "8h", "12h", "1d", "3d", "1w"}

// NormalizeInterval lower-cases iv and checks it against KlineIntervals.
// Features are named with the upper-case form, so "4H" is accepted too.
func NormalizeInterval(iv string) (string, error) {
	norm := strings.ToLower(strings.TrimSpace(iv))
	if !slices.Contains(KlineIntervals, norm) {
		return "", fmt.Errorf("unsupported kline interval %q (want one of %s)", iv, strings.Join(KlineIntervals, ", "))
	}
	return norm, nil
}

// ParseIntervalDuration turns "15m", "4h", "1d" or "1w" into a duration.
// Units are case-insensitive.
func ParseIntervalDuration(interval string) (time.Duration, bool) {
	interval = strings.ToLower(strings.TrimSpace(interval))
	if len(interval) < 2 {
		return 0, false
	}
	n, err := strconv.Atoi(interval[:len(interval)-1])
	if err != nil || n <= 0 {
		return 0, false
	}
	var unit time.Duration
	switch interval[len(interval)-1] {
	case 'm':
		unit = time.Minute
	case 'h':
		unit = time.Hour
	case 'd':
		unit = 24 * time.Hour
	case 'w':
		unit = 7 * 24 * time.Hour
	default:
		return 0, false
	}
	return time.Duration(n) * unit, true
}
