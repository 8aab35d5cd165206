package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	processStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "procmate",
			Subsystem: "process",
			Name:      "starts_total",
			Help:      "Number of successful process starts.",
		}, []string{"key"},
	)
	processStops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "procmate",
			Subsystem: "process",
			Name:      "stops_total",
			Help:      "Number of observed process exits (requested or not).",
		}, []string{"key"},
	)
	crashRestarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "procmate",
			Subsystem: "process",
			Name:      "crash_restarts_total",
			Help:      "Number of automatic restarts scheduled after unexpected exits.",
		}, []string{"key"},
	)
	scheduledRestarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "procmate",
			Subsystem: "process",
			Name:      "sweep_restarts_total",
			Help:      "Number of restarts issued by the autostart sweep.",
		}, []string{"key", "reason"},
	)
	running = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "procmate",
			Subsystem: "process",
			Name:      "running",
			Help:      "Whether the managed process is currently running (1 or 0).",
		}, []string{"key"},
	)
	capturedLines = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "procmate",
			Subsystem: "process",
			Name:      "captured_lines_total",
			Help:      "Number of output lines captured from managed processes.",
		}, []string{"key", "stream"},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{processStarts, processStops, crashRestarts, scheduledRestarts, running, capturedLines}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			// If already registered, ignore (allows double Register with default registry)
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler serving Prometheus metrics for the DefaultGatherer.
func Handler() http.Handler { return promhttp.Handler() }

// Lightweight helpers used by internal packages. They no-op until Register is called.

func IncStart(key string) {
	if regOK.Load() {
		processStarts.WithLabelValues(key).Inc()
	}
}

func IncStop(key string) {
	if regOK.Load() {
		processStops.WithLabelValues(key).Inc()
	}
}

func IncCrashRestart(key string) {
	if regOK.Load() {
		crashRestarts.WithLabelValues(key).Inc()
	}
}

func IncSweepRestart(key, reason string) {
	if regOK.Load() {
		scheduledRestarts.WithLabelValues(key, reason).Inc()
	}
}

func SetRunning(key string, up bool) {
	if regOK.Load() {
		v := 0.0
		if up {
			v = 1.0
		}
		running.WithLabelValues(key).Set(v)
	}
}

func AddCapturedLines(key, stream string, n int) {
	if regOK.Load() && n > 0 {
		capturedLines.WithLabelValues(key, stream).Add(float64(n))
	}
}
