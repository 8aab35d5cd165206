package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dkassen/procmate/internal/logger"
)

// DefaultInterpreter runs Command when neither Executable nor
// Interpreter is set.
const DefaultInterpreter = "/bin/sh"

// MetricsProvider is the optional capability of reporting structured
// metrics for a managed process. The supervisor treats the payload as
// opaque: it is attached to status responses on success, and provider
// failures are logged and omitted rather than propagated.
type MetricsProvider interface {
	Metrics(ctx context.Context) (map[string]any, error)
}

// Config describes one manageable external process. It is supplied
// once at registration and treated as immutable afterwards, except for
// the Autostart flag which SetAutostart may toggle.
type Config struct {
	Key         string   // unique identifier, one per external process type
	Name        string   // display metadata, opaque to the supervisor
	Description string
	Tags        []string

	Command     string   // script or program path, run by the resolved interpreter
	Args        []string // extra arguments appended after Command
	Executable  string   // explicit interpreter/binary; wins over Interpreter
	Interpreter string   // generic override; DefaultInterpreter when empty
	WorkDir     string   // absolute working directory, must exist at registration
	Env         map[string]string

	Autostart      bool          // the sweep ensures this process is running
	RestartOnCrash bool          // unexpected non-zero exits trigger a backoff restart
	DailyRestartAt string        // optional "HH:MM", host-local time, at most one restart per day
	MaxUptime      time.Duration // optional; the sweep forces a restart past this uptime
	MaxLogLines    int           // ring buffer capacity for captured output

	Log     logger.Config   // optional on-disk mirroring of captured output
	Metrics MetricsProvider // optional, supplied by the host application
}

// interpreter resolves the program that runs Command: explicit
// Executable wins, else Interpreter, else the system default.
func (c *Config) interpreter() string {
	if c.Executable != "" {
		return c.Executable
	}
	if c.Interpreter != "" {
		return c.Interpreter
	}
	return DefaultInterpreter
}

// argv builds the full command line.
func (c *Config) argv() []string {
	out := make([]string, 0, 2+len(c.Args))
	out = append(out, c.interpreter(), c.commandPath())
	out = append(out, c.Args...)
	return out
}

// commandPath resolves Command relative to WorkDir when not absolute.
func (c *Config) commandPath() string {
	if filepath.IsAbs(c.Command) || c.WorkDir == "" {
		return c.Command
	}
	return filepath.Join(c.WorkDir, c.Command)
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Key) == "" {
		return errors.New("config: key required")
	}
	if strings.TrimSpace(c.Command) == "" {
		return fmt.Errorf("config %s: command required", c.Key)
	}
	if c.WorkDir != "" {
		if !filepath.IsAbs(c.WorkDir) {
			return fmt.Errorf("config %s: workdir must be absolute: %s", c.Key, c.WorkDir)
		}
		fi, err := os.Stat(c.WorkDir)
		if err != nil || !fi.IsDir() {
			return fmt.Errorf("config %s: workdir does not exist: %s", c.Key, c.WorkDir)
		}
	}
	// Fail fast on a missing script rather than at first start.
	if _, err := os.Stat(c.commandPath()); err != nil {
		return fmt.Errorf("config %s: %w: %s", c.Key, ErrScriptNotFound, c.commandPath())
	}
	if c.DailyRestartAt != "" {
		if _, _, err := parseDailyRestart(c.DailyRestartAt); err != nil {
			return fmt.Errorf("config %s: %w", c.Key, err)
		}
	}
	if c.MaxUptime < 0 {
		return fmt.Errorf("config %s: max_uptime must be >= 0", c.Key)
	}
	return nil
}

// parseDailyRestart parses a wall-clock "HH:MM" value.
func parseDailyRestart(s string) (hour, minute int, err error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid daily restart time %q (want HH:MM)", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid daily restart hour %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid daily restart minute %q", s)
	}
	return hour, minute, nil
}
