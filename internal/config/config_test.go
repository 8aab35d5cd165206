package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "procmate.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFull(t *testing.T) {
	path := writeConfig(t, `
[server]
listen = "127.0.0.1:9000"
base_path = "/api"

[metrics]
listen = "127.0.0.1:9100"

[sweep]
schedule = "@every 30s"

[history]
sinks = ["sqlite:///tmp/procmate.db"]

[[processes]]
key = "bridge"
name = "Steam presence bridge"
tags = ["bridge", "node"]
command = "bridge.js"
executable = "/usr/bin/node"
workdir = "/tmp"
autostart = true
restart_on_crash = true
daily_restart_at = "05:00"
max_uptime = "12h"
max_log_lines = 300
collect_resources = true

[processes.env]
DB_PATH = "/srv/data/app.db"

[[processes]]
key = "rankbot"
command = "/srv/rankbot/main.py"
interpreter = "/usr/bin/python3"
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Server.Listen != "127.0.0.1:9000" || c.Server.BasePath != "/api" {
		t.Fatalf("server config: %+v", c.Server)
	}
	if c.Sweep.Schedule != "@every 30s" {
		t.Fatalf("sweep config: %+v", c.Sweep)
	}
	if len(c.History.Sinks) != 1 {
		t.Fatalf("history config: %+v", c.History)
	}
	if len(c.Processes) != 2 {
		t.Fatalf("processes: %d", len(c.Processes))
	}
	p := c.Processes[0]
	if p.Key != "bridge" || p.Executable != "/usr/bin/node" || !p.Autostart || !p.RestartOnCrash {
		t.Fatalf("bridge entry: %+v", p)
	}
	if p.MaxUptime != 12*time.Hour {
		t.Fatalf("max_uptime = %v", p.MaxUptime)
	}
	if p.Env["DB_PATH"] != "/srv/data/app.db" {
		t.Fatalf("env overlay: %+v", p.Env)
	}
	sc := p.Supervisor()
	if sc.Key != "bridge" || sc.DailyRestartAt != "05:00" || sc.MaxLogLines != 300 {
		t.Fatalf("conversion: %+v", sc)
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
[[processes]]
key = "x"
command = "/bin/true"
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Server.Listen == "" {
		t.Fatal("listen default not applied")
	}
	if c.Sweep.Schedule != "@every 1m" {
		t.Fatalf("sweep default = %q", c.Sweep.Schedule)
	}
}

func TestLoadRejectsDuplicateKeys(t *testing.T) {
	path := writeConfig(t, `
[[processes]]
key = "x"
command = "/bin/true"

[[processes]]
key = "x"
command = "/bin/false"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected duplicate key error")
	}
}

func TestLoadRejectsMissingKey(t *testing.T) {
	path := writeConfig(t, `
[[processes]]
command = "/bin/true"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected missing key error")
	}
}
