package supervisor

import "errors"

var (
	// ErrDuplicateKey is returned by Register when the key is taken.
	ErrDuplicateKey = errors.New("process already registered")
	// ErrUnknownProcess is returned for operations on unregistered keys.
	ErrUnknownProcess = errors.New("unknown process")
	// ErrAlreadyRunning is returned by Start when a live process exists.
	// Callers wanting idempotence should use EnsureRunning.
	ErrAlreadyRunning = errors.New("process already running")
	// ErrNotRunning is returned by Stop when no live process exists.
	ErrNotRunning = errors.New("process not running")
	// ErrStopTimeout is returned by Stop when the process survives
	// SIGTERM, SIGKILL, and the grace window; the key still reports
	// running until the exit is finally observed.
	ErrStopTimeout = errors.New("process did not exit in time")
	// ErrScriptNotFound is returned by Register when the configured
	// command path does not exist.
	ErrScriptNotFound = errors.New("command path not found")
	// ErrShuttingDown rejects starts issued after Shutdown has begun.
	ErrShuttingDown = errors.New("supervisor is shutting down")
)
