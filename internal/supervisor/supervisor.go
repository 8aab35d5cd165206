package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/dkassen/procmate/internal/envutil"
	"github.com/dkassen/procmate/internal/history"
	"github.com/dkassen/procmate/internal/logring"
	"github.com/dkassen/procmate/internal/metrics"
)

const (
	// DefaultKillTimeout bounds the graceful-terminate window before
	// escalating to SIGKILL.
	DefaultKillTimeout = 10 * time.Second

	backoffBase    = 5 * time.Second
	backoffCeiling = 60 * time.Second

	// killGrace bounds the wait for the exit waiter after SIGKILL.
	killGrace = 2 * time.Second

	sinkSendTimeout = 5 * time.Second
)

// state is the mutable runtime side of one registered key. All fields
// are guarded by the supervisor's lock.
type state struct {
	cmd              *exec.Cmd
	pid              int
	startedAt        time.Time // carries a monotonic reading for uptime math
	lastExitAt       time.Time
	exitCode         *int
	restartAttempts  int
	stopRequested    bool
	logs             *logring.Ring
	lastDailyRestart string        // local calendar date of the last scheduled daily restart
	waitDone         chan struct{} // closed by the exit waiter after state is reconciled
}

// running reports whether a live OS process is associated. The exit
// waiter clears the handle under the lock once the exit is recorded,
// so a present handle is the running signal. exitCode and lastExitAt
// survive restarts as diagnostic history.
func (st *state) running() bool { return st.cmd != nil }

// Supervisor launches, monitors, restarts, and schedules external
// helper processes. All control operations and state reads are
// serialized through a single lock; log-pump appends take the lock per
// line only.
type Supervisor struct {
	mu      sync.Mutex
	logger  *slog.Logger
	configs map[string]*Config
	states  map[string]*state
	sinks   []history.Sink
	closing bool

	// sweepMu serializes sweeps. A sweep riding through a slow kill
	// window must not overlap the next invocation, or both could see
	// the daily-restart marker unset and double-fire.
	sweepMu sync.Mutex
}

func New(logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		logger:  logger,
		configs: make(map[string]*Config),
		states:  make(map[string]*state),
	}
}

// SetHistorySinks configures lifecycle event sinks. Passing none
// clears the list. The supervisor does not close sinks; their
// lifetime belongs to the caller.
func (s *Supervisor) SetHistorySinks(sinks ...history.Sink) {
	s.mu.Lock()
	s.sinks = append([]history.Sink(nil), sinks...)
	s.mu.Unlock()
}

// Register stores a config and an empty runtime state for its key.
// The referenced command path and workdir must exist; duplicate keys
// are rejected. No process is spawned by registration alone.
func (s *Supervisor) Register(cfg Config) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.configs[cfg.Key]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, cfg.Key)
	}
	c := cfg
	s.configs[cfg.Key] = &c
	s.states[cfg.Key] = &state{logs: logring.New(cfg.MaxLogLines)}
	s.logger.Info("process registered", "key", cfg.Key, "autostart", cfg.Autostart)
	return nil
}

// Keys returns all registered keys in sorted order.
func (s *Supervisor) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.configs))
	for k := range s.configs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// PID reports the live PID for key, or false when the process is not
// running or unknown. Cheap enough for metrics providers to call.
func (s *Supervisor) PID(key string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, st, err := s.lookupLocked(key)
	if err != nil || !st.running() {
		return 0, false
	}
	return st.pid, true
}

// Start spawns the process for key and returns a status snapshot.
// It fails with ErrAlreadyRunning when a live process exists; use
// EnsureRunning for idempotent starts.
func (s *Supervisor) Start(key string) (Status, error) {
	s.mu.Lock()
	cfg, st, err := s.lookupLocked(key)
	if err != nil {
		s.mu.Unlock()
		return Status{}, err
	}
	if s.closing {
		s.mu.Unlock()
		return Status{}, fmt.Errorf("%w: %s", ErrShuttingDown, key)
	}
	if st.running() {
		s.mu.Unlock()
		return Status{}, fmt.Errorf("%w: %s", ErrAlreadyRunning, key)
	}

	argv := cfg.argv()
	// #nosec G204 -- command lines come from registration-time configs
	cmd := exec.Command(argv[0], argv[1:]...)
	if cfg.WorkDir != "" {
		cmd.Dir = cfg.WorkDir
	}
	cmd.Env = envutil.Overlay(cfg.Env)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		s.mu.Unlock()
		return Status{}, fmt.Errorf("start %s: %w", key, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		s.mu.Unlock()
		return Status{}, fmt.Errorf("start %s: %w", key, err)
	}
	if err := cmd.Start(); err != nil {
		s.mu.Unlock()
		return Status{}, fmt.Errorf("start %s: %w", key, err)
	}

	st.cmd = cmd
	st.pid = cmd.Process.Pid
	st.startedAt = time.Now()
	st.stopRequested = false
	st.restartAttempts = 0
	st.logs = logring.New(cfg.MaxLogLines)
	st.waitDone = make(chan struct{})
	st.logs.Append(logring.Entry{
		At:     time.Now(),
		Stream: logring.StreamManager,
		Line:   fmt.Sprintf("started pid %d", st.pid),
	})
	snap := statusLocked(cfg, st)
	outMirror, errMirror := cfg.Log.Writers(key)
	ring := st.logs
	done := st.waitDone
	s.mu.Unlock()

	outDone := make(chan struct{})
	errDone := make(chan struct{})
	go s.pump(key, ring, stdout, logring.StreamStdout, outMirror, outDone)
	go s.pump(key, ring, stderr, logring.StreamStderr, errMirror, errDone)
	go s.waitLoop(key, cmd, done, outDone, errDone)

	metrics.IncStart(key)
	metrics.SetRunning(key, true)
	s.emit(history.Event{Type: history.EventStart, Key: key, PID: snap.PID, OccurredAt: time.Now()})
	s.logger.Info("process started", "key", key, "pid", snap.PID)
	return snap, nil
}

// Stop terminates the process for key: SIGTERM, then SIGKILL after
// killAfter. The stop-requested flag is set before any signal so the
// exit waiter never classifies this exit as a crash. On a nil return
// the exit code and exit time have been recorded; ErrStopTimeout
// means the process outlived even SIGKILL and is still reported
// running.
func (s *Supervisor) Stop(key string, killAfter time.Duration) error {
	if killAfter <= 0 {
		killAfter = DefaultKillTimeout
	}
	s.mu.Lock()
	_, st, err := s.lookupLocked(key)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if !st.running() {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotRunning, key)
	}
	st.stopRequested = true
	pid := st.pid
	done := st.waitDone
	s.mu.Unlock()

	// Signal the whole process group so grandchildren go down too.
	_ = syscall.Kill(-pid, syscall.SIGTERM)
	select {
	case <-done:
	case <-time.After(killAfter):
		s.logger.Warn("terminate timeout, killing", "key", key, "pid", pid)
		_ = syscall.Kill(-pid, syscall.SIGKILL)
		select {
		case <-done:
		case <-time.After(killGrace):
			// The waiter owns reaping; nothing more we can do here,
			// but the caller must know the stop did not complete.
			s.logger.Warn("process did not exit after kill", "key", key, "pid", pid)
			return fmt.Errorf("%w: %s", ErrStopTimeout, key)
		}
	}
	return nil
}

// Restart is a best-effort stop (tolerating "not running") followed by
// a start. Used for caller-initiated, scheduled, and forced restarts.
func (s *Supervisor) Restart(key string, killAfter time.Duration) (Status, error) {
	if err := s.Stop(key, killAfter); err != nil && !errors.Is(err, ErrNotRunning) {
		return Status{}, err
	}
	return s.Start(key)
}

// EnsureRunning starts the process unless it already runs, in which
// case the current snapshot is returned.
func (s *Supervisor) EnsureRunning(key string) (Status, error) {
	snap, err := s.Start(key)
	if err == nil {
		return snap, nil
	}
	if errors.Is(err, ErrAlreadyRunning) {
		s.mu.Lock()
		defer s.mu.Unlock()
		cfg, st, lerr := s.lookupLocked(key)
		if lerr != nil {
			return Status{}, lerr
		}
		return statusLocked(cfg, st), nil
	}
	return Status{}, err
}

// SetAutostart toggles the autostart flag; it takes effect on the next
// sweep.
func (s *Supervisor) SetAutostart(key string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, _, err := s.lookupLocked(key)
	if err != nil {
		return err
	}
	cfg.Autostart = enabled
	s.logger.Info("autostart toggled", "key", key, "enabled", enabled)
	return nil
}

// EnsureAutostart is the periodic sweep: per key it applies the daily
// restart schedule, the max-uptime ceiling, and the autostart flag.
// Failures for one key are logged and do not block the others. The
// supervisor runs no timer of its own; an external scheduler invokes
// this. Concurrent invocations run one at a time.
func (s *Supervisor) EnsureAutostart() {
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()
	now := time.Now()
	for _, key := range s.Keys() {
		if err := s.sweepOne(key, now); err != nil {
			s.logger.Warn("autostart sweep failed", "key", key, "error", err)
		}
	}
}

func (s *Supervisor) sweepOne(key string, now time.Time) error {
	s.mu.Lock()
	cfg, st, err := s.lookupLocked(key)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	var reason string
	if cfg.DailyRestartAt != "" {
		hour, minute, perr := parseDailyRestart(cfg.DailyRestartAt)
		if perr == nil {
			target := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
			// Host-local calendar date keyed; at most one restart per day.
			if !now.Before(target) && st.lastDailyRestart != localDate(now) {
				reason = "daily"
			}
		}
	}
	if reason == "" && cfg.MaxUptime > 0 && st.running() && time.Since(st.startedAt) >= cfg.MaxUptime {
		reason = "uptime"
	}
	autostart := cfg.Autostart
	s.mu.Unlock()

	if reason != "" {
		if _, err := s.Restart(key, DefaultKillTimeout); err != nil {
			return fmt.Errorf("scheduled restart (%s): %w", reason, err)
		}
		metrics.IncSweepRestart(key, reason)
		s.logger.Info("scheduled restart", "key", key, "reason", reason)
		if reason == "daily" {
			// Marker set only after the restart attempt succeeded.
			s.mu.Lock()
			st.lastDailyRestart = localDate(now)
			s.mu.Unlock()
		}
		return nil
	}
	if autostart {
		if _, err := s.EnsureRunning(key); err != nil {
			return err
		}
	}
	return nil
}

// Status returns a snapshot for key. A configured metrics provider is
// invoked outside the lock; its failure degrades the response (field
// omitted) rather than failing it.
func (s *Supervisor) Status(ctx context.Context, key string) (Status, error) {
	s.mu.Lock()
	cfg, st, err := s.lookupLocked(key)
	if err != nil {
		s.mu.Unlock()
		return Status{}, err
	}
	snap := statusLocked(cfg, st)
	provider := cfg.Metrics
	s.mu.Unlock()

	if provider != nil {
		m, merr := provider.Metrics(ctx)
		if merr != nil {
			s.logger.Warn("metrics provider failed", "key", key, "error", merr)
		} else {
			snap.Metrics = m
		}
	}
	return snap, nil
}

// Snapshot returns status plus config metadata for every registered
// key, for bulk display.
func (s *Supervisor) Snapshot(ctx context.Context) []Info {
	out := make([]Info, 0)
	for _, key := range s.Keys() {
		st, err := s.Status(ctx, key)
		if err != nil {
			continue
		}
		s.mu.Lock()
		cfg := s.configs[key]
		info := Info{
			Key:         key,
			Name:        cfg.Name,
			Description: cfg.Description,
			Tags:        append([]string(nil), cfg.Tags...),
			Autostart:   cfg.Autostart,
			Status:      st,
		}
		s.mu.Unlock()
		out = append(out, info)
	}
	return out
}

// Logs returns up to limit of the most recent captured lines for key,
// in chronological order.
func (s *Supervisor) Logs(key string, limit int) ([]logring.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, st, err := s.lookupLocked(key)
	if err != nil {
		return nil, err
	}
	return st.logs.Tail(limit), nil
}

// Shutdown stops every running process. The shutting-down flag is set
// first so exits observed during shutdown are never treated as
// crashes. One key's stop failure does not prevent the others'.
func (s *Supervisor) Shutdown(killAfter time.Duration) error {
	s.mu.Lock()
	s.closing = true
	keys := make([]string, 0, len(s.configs))
	for k := range s.configs {
		keys = append(keys, k)
	}
	s.mu.Unlock()
	sort.Strings(keys)

	var errs []error
	for _, key := range keys {
		if err := s.Stop(key, killAfter); err != nil && !errors.Is(err, ErrNotRunning) {
			errs = append(errs, fmt.Errorf("shutdown %s: %w", key, err))
		}
	}
	s.logger.Info("supervisor shut down", "stopped", len(keys), "errors", len(errs))
	return errors.Join(errs...)
}

// lookupLocked resolves config and state for key; the lock must be held.
func (s *Supervisor) lookupLocked(key string) (*Config, *state, error) {
	cfg := s.configs[key]
	if cfg == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownProcess, key)
	}
	return cfg, s.states[key], nil
}

func (s *Supervisor) emit(e history.Event) {
	s.mu.Lock()
	sinks := append([]history.Sink(nil), s.sinks...)
	s.mu.Unlock()
	for _, sink := range sinks {
		ctx, cancel := context.WithTimeout(context.Background(), sinkSendTimeout)
		if err := sink.Send(ctx, e); err != nil {
			s.logger.Warn("history sink send failed", "key", e.Key, "type", e.Type, "error", err)
		}
		cancel()
	}
}
