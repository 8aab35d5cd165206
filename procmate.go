package procmate

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	cfg "github.com/dkassen/procmate/internal/config"
	"github.com/dkassen/procmate/internal/history"
	"github.com/dkassen/procmate/internal/logring"
	"github.com/dkassen/procmate/internal/metrics"
	iapi "github.com/dkassen/procmate/internal/server"
	"github.com/dkassen/procmate/internal/supervisor"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Config = supervisor.Config

type Status = supervisor.Status

type Info = supervisor.Info

type LogEntry = logring.Entry

type MetricsProvider = supervisor.MetricsProvider

type HistorySink = history.Sink

type HistoryEvent = history.Event

// Supervisor is a thin facade over internal/supervisor.Supervisor.
// It provides a stable public API for embedding.

type Supervisor struct{ inner *supervisor.Supervisor }

func New(logger *slog.Logger) *Supervisor {
	return &Supervisor{inner: supervisor.New(logger)}
}

func (s *Supervisor) SetHistorySinks(sinks ...HistorySink) { s.inner.SetHistorySinks(sinks...) }
func (s *Supervisor) Register(c Config) error              { return s.inner.Register(c) }
func (s *Supervisor) Keys() []string                       { return s.inner.Keys() }
func (s *Supervisor) Start(key string) (Status, error)     { return s.inner.Start(key) }
func (s *Supervisor) Stop(key string, wait time.Duration) error {
	return s.inner.Stop(key, wait)
}
func (s *Supervisor) Restart(key string, wait time.Duration) (Status, error) {
	return s.inner.Restart(key, wait)
}
func (s *Supervisor) EnsureRunning(key string) (Status, error) { return s.inner.EnsureRunning(key) }
func (s *Supervisor) SetAutostart(key string, enabled bool) error {
	return s.inner.SetAutostart(key, enabled)
}
func (s *Supervisor) EnsureAutostart() { s.inner.EnsureAutostart() }
func (s *Supervisor) Status(ctx context.Context, key string) (Status, error) {
	return s.inner.Status(ctx, key)
}
func (s *Supervisor) Snapshot(ctx context.Context) []Info { return s.inner.Snapshot(ctx) }
func (s *Supervisor) Logs(key string, limit int) ([]LogEntry, error) {
	return s.inner.Logs(key, limit)
}
func (s *Supervisor) Shutdown(wait time.Duration) error { return s.inner.Shutdown(wait) }

func LoadConfig(path string) (*cfg.Config, error) {
	return cfg.Load(path)
}

// NewHTTPServer starts an HTTP server exposing the management API using
// the given supervisor.
func NewHTTPServer(addr, basePath string, s *Supervisor) (*http.Server, error) {
	return iapi.NewServer(addr, basePath, s.inner)
}

// NewHTTPHandler returns the management API as an http.Handler so it
// can be mounted inside an existing server or mux.
func NewHTTPHandler(basePath string, s *Supervisor) http.Handler {
	return iapi.NewRouter(s.inner, basePath).Handler()
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }

// ServeMetrics starts an HTTP server on addr exposing /metrics using the default registry.
// It returns any immediate listen error; otherwise it runs the server in the caller goroutine.
func ServeMetrics(addr string) error {
	http.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv.ListenAndServe()
}
