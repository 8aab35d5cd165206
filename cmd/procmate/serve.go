package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dkassen/procmate/internal/config"
	"github.com/dkassen/procmate/internal/history"
	"github.com/dkassen/procmate/internal/history/factory"
	"github.com/dkassen/procmate/internal/logger"
	"github.com/dkassen/procmate/internal/metrics"
	"github.com/dkassen/procmate/internal/resources"
	"github.com/dkassen/procmate/internal/server"
	"github.com/dkassen/procmate/internal/supervisor"
	"github.com/dkassen/procmate/internal/sweep"
)

const shutdownWait = 10 * time.Second

func runServe(configPath string) error {
	if configPath == "" {
		return fmt.Errorf("config file required for serve command. Use --config=procmate.toml or provide as argument")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	log := logger.Setup(cfg.Log)

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		log.Warn("failed to register metrics", "error", err)
	}
	if cfg.Metrics.Listen != "" {
		go func() {
			if err := serveMetrics(cfg.Metrics.Listen); err != nil {
				log.Error("metrics server error", "error", err)
			}
		}()
	}

	sup := supervisor.New(log)

	var sinks []history.Sink
	for _, dsn := range cfg.History.Sinks {
		sink, err := factory.NewSinkFromDSN(dsn)
		if err != nil {
			return fmt.Errorf("history sink %q: %w", dsn, err)
		}
		sinks = append(sinks, sink)
	}
	if len(sinks) > 0 {
		sup.SetHistorySinks(sinks...)
	}
	defer func() {
		for _, sink := range sinks {
			_ = sink.Close()
		}
	}()

	for _, p := range cfg.Processes {
		sc := p.Supervisor()
		if p.CollectResources {
			key := p.Key
			sc.Metrics = resources.NewProvider(func() (int, bool) { return sup.PID(key) })
		}
		if err := sup.Register(sc); err != nil {
			return fmt.Errorf("register %s: %w", p.Key, err)
		}
	}

	// Bring autostart processes up before accepting requests.
	sup.EnsureAutostart()

	runner, err := sweep.New(cfg.Sweep.Schedule, sup.EnsureAutostart)
	if err != nil {
		return fmt.Errorf("sweep schedule %q: %w", cfg.Sweep.Schedule, err)
	}
	runner.Start()

	srv, err := server.NewServer(cfg.Server.Listen, cfg.Server.BasePath, sup)
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}
	log.Info("procmate daemon started", "listen", cfg.Server.Listen, "base_path", cfg.Server.BasePath, "processes", len(cfg.Processes))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	runner.Stop()
	_ = srv.Close()
	return sup.Shutdown(shutdownWait)
}

func serveMetrics(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv.ListenAndServe()
}
