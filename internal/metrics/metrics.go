// Package metrics exposes Prometheus counters/gauges/histograms for the
// event processor and store, mirroring the package-level mutex-guarded
// registry pattern used elsewhere in this codebase.
package metrics

import (
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	mu  sync.RWMutex
	reg *prometheus.Registry

	eventsFired     *prometheus.CounterVec
	dispatchErrors  *prometheus.CounterVec
	storeRetries    *prometheus.CounterVec
	cycleDuration   prometheus.Histogram
	adaptiveInterval prometheus.Gauge
	remotePolls     *prometheus.CounterVec
)

func init() {
	resetLocked()
}

// Reset clears and reinitializes all metrics collectors; used by tests to
// ensure clean state between runs.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	resetLocked()
}

// Handler returns an HTTP handler exposing metrics in Prometheus format.
func Handler() http.Handler {
	mu.RLock()
	registry := reg
	mu.RUnlock()
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// ObserveEventFired records a trigger of the given event type firing.
func ObserveEventFired(eventType string) {
	mu.RLock()
	defer mu.RUnlock()
	if eventsFired != nil {
		eventsFired.WithLabelValues(sanitizeLabel(eventType, "unknown")).Inc()
	}
}

// ObserveDispatchError records a dispatch failure for the given site.
func ObserveDispatchError(site string) {
	mu.RLock()
	defer mu.RUnlock()
	if dispatchErrors != nil {
		dispatchErrors.WithLabelValues(sanitizeLabel(site, "unknown")).Inc()
	}
}

// ObserveStoreRetry records a transient-storage retry for op.
func ObserveStoreRetry(op string) {
	mu.RLock()
	defer mu.RUnlock()
	if storeRetries != nil {
		storeRetries.WithLabelValues(sanitizeLabel(op, "unknown")).Inc()
	}
}

// ObserveRemotePoll records a RemoteJobEvent poll against a site.
func ObserveRemotePoll(site string) {
	mu.RLock()
	defer mu.RUnlock()
	if remotePolls != nil {
		remotePolls.WithLabelValues(sanitizeLabel(site, "unknown")).Inc()
	}
}

// ObserveCycleDuration records the wall time of one EventProcessor cycle.
func ObserveCycleDuration(d time.Duration) {
	mu.RLock()
	defer mu.RUnlock()
	if cycleDuration != nil {
		cycleDuration.Observe(d.Seconds())
	}
}

// SetAdaptiveInterval publishes the processor's current sleep interval.
func SetAdaptiveInterval(d time.Duration) {
	mu.RLock()
	defer mu.RUnlock()
	if adaptiveInterval != nil {
		adaptiveInterval.Set(d.Seconds())
	}
}

func resetLocked() {
	registry := prometheus.NewRegistry()

	fired := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lwfm",
		Subsystem: "eventproc",
		Name:      "events_fired_total",
		Help:      "Total triggers fired, by event type.",
	}, []string{"event_type"})

	derr := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lwfm",
		Subsystem: "eventproc",
		Name:      "dispatch_errors_total",
		Help:      "Total dispatch failures, by site.",
	}, []string{"site"})

	retries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lwfm",
		Subsystem: "store",
		Name:      "retries_total",
		Help:      "Total transient-storage retries, by operation.",
	}, []string{"op"})

	polls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lwfm",
		Subsystem: "eventproc",
		Name:      "remote_polls_total",
		Help:      "Total RemoteJobEvent polls, by site.",
	}, []string{"site"})

	cycle := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "lwfm",
		Subsystem: "eventproc",
		Name:      "cycle_duration_seconds",
		Help:      "Duration of one EventProcessor evaluation cycle.",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})

	interval := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "lwfm",
		Subsystem: "eventproc",
		Name:      "adaptive_interval_seconds",
		Help:      "Current adaptive sleep interval between cycles.",
	})

	registry.MustRegister(fired, derr, retries, polls, cycle, interval)

	reg = registry
	eventsFired = fired
	dispatchErrors = derr
	storeRetries = retries
	remotePolls = polls
	cycleDuration = cycle
	adaptiveInterval = interval
}

func sanitizeLabel(v, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	var b strings.Builder
	for _, r := range v {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ':' || r == '.' || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
