package procmate

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func requireUnix(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires Unix-like environment")
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSupervisorFacadeStartStatusStop(t *testing.T) {
	requireUnix(t)
	s := New(discardLogger())
	script := writeScript(t, "sleep 30\n")
	if err := s.Register(Config{Key: "pf1", Command: script}); err != nil {
		t.Fatalf("register: %v", err)
	}
	st, err := s.Start("pf1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !st.Running || st.PID == 0 {
		t.Fatalf("unexpected status: %+v", st)
	}
	got, err := s.Status(context.Background(), "pf1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !got.Running {
		t.Fatalf("expected running, got %+v", got)
	}
	if err := s.Stop("pf1", 2*time.Second); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := s.Shutdown(2 * time.Second); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestLoadConfigHelper(t *testing.T) {
	requireUnix(t)
	dir := t.TempDir()
	cfg := `
[server]
listen = "127.0.0.1:9999"

[[processes]]
key = "c1"
command = "run.sh"
autostart = true
restart_on_crash = true
daily_restart_at = "05:00"
max_log_lines = 200
`
	p := filepath.Join(dir, "procmate.toml")
	if err := os.WriteFile(p, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	config, err := LoadConfig(p)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(config.Processes) != 1 {
		t.Fatalf("LoadConfig processes: len=%d", len(config.Processes))
	}
	pc := config.Processes[0]
	if pc.Key != "c1" || !pc.Autostart || pc.DailyRestartAt != "05:00" {
		t.Fatalf("unexpected process entry: %+v", pc)
	}
	if config.Sweep.Schedule != "@every 1m" {
		t.Fatalf("expected default sweep schedule, got %q", config.Sweep.Schedule)
	}
}

func TestMetricsHelpers(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := RegisterMetrics(reg); err != nil {
		t.Fatalf("RegisterMetrics: %v", err)
	}
	if err := RegisterMetricsDefault(); err != nil {
		t.Fatalf("RegisterMetricsDefault: %v", err)
	}
}
