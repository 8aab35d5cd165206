package client

import "time"

// Status mirrors the daemon's per-process status payload.
type Status struct {
	Key           string         `json:"key"`
	Name          string         `json:"name,omitempty"`
	Running       bool           `json:"running"`
	PID           int            `json:"pid,omitempty"`
	StartedAt     time.Time      `json:"started_at,omitzero"`
	UptimeSeconds float64        `json:"uptime_seconds,omitempty"`
	LastExitAt    time.Time      `json:"last_exit_at,omitzero"`
	ExitCode      *int           `json:"exit_code,omitempty"`
	Restarts      int            `json:"restarts"`
	Autostart     bool           `json:"autostart"`
	Metrics       map[string]any `json:"metrics,omitempty"`
}

// Info pairs configuration metadata with a status snapshot.
type Info struct {
	Key         string   `json:"key"`
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Autostart   bool     `json:"autostart"`
	Status      Status   `json:"status"`
}

// LogEntry is one captured line of child output.
type LogEntry struct {
	At     time.Time `json:"at"`
	Stream string    `json:"stream"`
	Line   string    `json:"line"`
}

// ErrorResponse is the daemon's error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}
