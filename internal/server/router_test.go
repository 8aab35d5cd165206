package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/dkassen/procmate/internal/logring"
	"github.com/dkassen/procmate/internal/supervisor"
)

func requireUnix(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires Unix-like environment")
	}
}

func newTestServer(t *testing.T) (*supervisor.Supervisor, *httptest.Server) {
	t.Helper()
	sup := supervisor.New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ts := httptest.NewServer(NewRouter(sup, "/api").Handler())
	t.Cleanup(ts.Close)
	t.Cleanup(func() { _ = sup.Shutdown(time.Second) })
	return sup, ts
}

func registerSleeper(t *testing.T, sup *supervisor.Supervisor, key string) {
	t.Helper()
	dir := t.TempDir()
	script := filepath.Join(dir, "sleep.sh")
	if err := os.WriteFile(script, []byte("#!/bin/sh\necho up\nsleep 30\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	if err := sup.Register(supervisor.Config{Key: key, Command: script}); err != nil {
		t.Fatalf("register: %v", err)
	}
}

func do(t *testing.T, method, url string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestStartStatusStopEndpoints(t *testing.T) {
	requireUnix(t)
	sup, ts := newTestServer(t)
	registerSleeper(t, sup, "svc")

	resp := do(t, http.MethodPost, ts.URL+"/api/processes/svc/start")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start status = %d", resp.StatusCode)
	}
	var st supervisor.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !st.Running || st.PID == 0 {
		t.Fatalf("start response: %+v", st)
	}

	// Double start conflicts.
	resp = do(t, http.MethodPost, ts.URL+"/api/processes/svc/start")
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("double start status = %d", resp.StatusCode)
	}

	// Ensure is idempotent.
	resp = do(t, http.MethodPost, ts.URL+"/api/processes/svc/ensure")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ensure status = %d", resp.StatusCode)
	}

	resp = do(t, http.MethodPost, ts.URL+"/api/processes/svc/stop?wait=2s")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stop status = %d", resp.StatusCode)
	}
	resp = do(t, http.MethodGet, ts.URL+"/api/processes/svc")
	var after supervisor.Status
	if err := json.NewDecoder(resp.Body).Decode(&after); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if after.Running {
		t.Fatalf("still running after stop: %+v", after)
	}

	// Stop of a dead process conflicts.
	resp = do(t, http.MethodPost, ts.URL+"/api/processes/svc/stop")
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("stop dead status = %d", resp.StatusCode)
	}
}

func TestUnknownKeyIs404(t *testing.T) {
	requireUnix(t)
	_, ts := newTestServer(t)
	for _, ep := range []struct{ method, path string }{
		{http.MethodGet, "/api/processes/ghost"},
		{http.MethodGet, "/api/processes/ghost/logs"},
		{http.MethodPost, "/api/processes/ghost/start"},
		{http.MethodPost, "/api/processes/ghost/stop"},
		{http.MethodPost, "/api/processes/ghost/autostart?enabled=true"},
	} {
		resp := do(t, ep.method, ts.URL+ep.path)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("%s %s status = %d, want 404", ep.method, ep.path, resp.StatusCode)
		}
	}
}

func TestLogsEndpoint(t *testing.T) {
	requireUnix(t)
	sup, ts := newTestServer(t)
	registerSleeper(t, sup, "svc")

	if _, err := sup.Start("svc"); err != nil {
		t.Fatalf("start: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	var entries []logring.Entry
	for time.Now().Before(deadline) {
		resp := do(t, http.MethodGet, ts.URL+"/api/processes/svc/logs?limit=50")
		entries = entries[:0]
		if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(entries) >= 2 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	var sawStdout bool
	for _, e := range entries {
		if e.Stream == logring.StreamStdout && e.Line == "up" {
			sawStdout = true
		}
	}
	if !sawStdout {
		t.Fatalf("stdout line missing from logs: %+v", entries)
	}
}

func TestSnapshotAndAutostartEndpoints(t *testing.T) {
	requireUnix(t)
	sup, ts := newTestServer(t)
	registerSleeper(t, sup, "a")
	registerSleeper(t, sup, "b")

	resp := do(t, http.MethodPost, ts.URL+"/api/processes/a/autostart?enabled=true")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("autostart status = %d", resp.StatusCode)
	}

	resp = do(t, http.MethodPost, ts.URL+"/api/sweep")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("sweep status = %d", resp.StatusCode)
	}

	resp = do(t, http.MethodGet, ts.URL+"/api/processes")
	var infos []supervisor.Info
	if err := json.NewDecoder(resp.Body).Decode(&infos); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("snapshot length = %d", len(infos))
	}
	byKey := map[string]supervisor.Info{}
	for _, in := range infos {
		byKey[in.Key] = in
	}
	if !byKey["a"].Status.Running {
		t.Fatalf("autostarted process not running after sweep: %+v", byKey["a"])
	}
	if byKey["b"].Status.Running {
		t.Fatalf("non-autostart process started by sweep: %+v", byKey["b"])
	}

	// Malformed autostart toggle is a 400.
	resp = do(t, http.MethodPost, ts.URL+"/api/processes/a/autostart?enabled=maybe")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad autostart status = %d", resp.StatusCode)
	}
}
