// Package metrics exposes scan and walk-forward counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "spectra"

// Recorder owns a private registry so several instances can coexist in tests.
type Recorder struct {
	registry *prometheus.Registry

	scans        *prometheus.CounterVec
	scanDuration prometheus.Histogram
	scanAssets   *prometheus.GaugeVec
	signals      *prometheus.CounterVec
	walkRuns     *prometheus.CounterVec
	walkMedian   *prometheus.GaugeVec
	breakerState *prometheus.GaugeVec
}

// New creates a recorder with Go runtime and process collectors attached.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &Recorder{
		registry: reg,
		scans: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Scan cycles by outcome.",
		}, []string{"result"}),
		scanDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Wall time of one scan cycle.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		scanAssets: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scan_assets",
			Help:      "Assets in the last scan by state.",
		}, []string{"state"}),
		signals: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signals_total",
			Help:      "Qualifying signals reported.",
		}, []string{"signal", "conviction"}),
		walkRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "walkforward_runs_total",
			Help:      "Walk-forward runs by gate verdict.",
		}, []string{"verdict"}),
		walkMedian: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "walkforward_median_oos_score",
			Help:      "Median out-of-sample score of the last run.",
		}, []string{"symbol", "timeframe"}),
		breakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "breaker_state",
			Help:      "Circuit breaker state: 0 closed, 1 half-open, 2 open.",
		}, []string{"name"}),
	}
}

// ScanStats is what one scan cycle reports.
type ScanStats struct {
	Duration  time.Duration
	Evaluated int
	Skipped   int
	Err       error
	// Signals holds one signal/conviction pair per reported row.
	Signals [][2]string
}

// ObserveScan records a finished cycle.
func (r *Recorder) ObserveScan(s ScanStats) {
	if r == nil {
		return
	}
	result := "ok"
	if s.Err != nil {
		result = "error"
	}
	r.scans.WithLabelValues(result).Inc()
	r.scanDuration.Observe(s.Duration.Seconds())
	r.scanAssets.WithLabelValues("evaluated").Set(float64(s.Evaluated))
	r.scanAssets.WithLabelValues("skipped").Set(float64(s.Skipped))
	for _, sig := range s.Signals {
		r.signals.WithLabelValues(sig[0], sig[1]).Inc()
	}
}

// ObserveWalkForward records a gate decision.
func (r *Recorder) ObserveWalkForward(symbol, timeframe string, median float64, passed bool) {
	if r == nil {
		return
	}
	verdict := "fail"
	if passed {
		verdict = "pass"
	}
	r.walkRuns.WithLabelValues(verdict).Inc()
	r.walkMedian.WithLabelValues(symbol, timeframe).Set(median)
}

// BreakerStateChanged matches the circuit breaker state hook.
func (r *Recorder) BreakerStateChanged(name, _, to string) {
	if r == nil {
		return
	}
	var v float64
	switch to {
	case "half-open":
		v = 1
	case "open":
		v = 2
	}
	r.breakerState.WithLabelValues(name).Set(v)
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
