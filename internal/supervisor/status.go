package supervisor

import (
	"time"
)

// Status is a point-in-time snapshot of one managed process.
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

// Info pairs static config metadata with a status snapshot, for bulk
// display via Snapshot.
type Info struct {
	Key         string   `json:"key"`
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Autostart   bool     `json:"autostart"`
	Status      Status   `json:"status"`
}

// statusLocked builds a Status from config and runtime state. The
// supervisor lock must be held. Metrics providers are invoked by the
// caller after releasing the lock.
func statusLocked(cfg *Config, st *state) Status {
	out := Status{
		Key:        cfg.Key,
		Name:       cfg.Name,
		Running:    st.running(),
		LastExitAt: st.lastExitAt,
		Restarts:   st.restartAttempts,
		Autostart:  cfg.Autostart,
	}
	if st.exitCode != nil {
		code := *st.exitCode
		out.ExitCode = &code
	}
	if out.Running {
		out.PID = st.pid
		out.StartedAt = st.startedAt
		out.UptimeSeconds = time.Since(st.startedAt).Seconds()
	} else if !st.startedAt.IsZero() {
		out.StartedAt = st.startedAt
	}
	return out
}
