package supervisor

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/dkassen/procmate/internal/history"
	"github.com/dkassen/procmate/internal/logring"
	"github.com/dkassen/procmate/internal/metrics"
)

// pump reads one output stream line by line until EOF. Each line is
// decoded permissively, timestamped, appended to the ring under the
// lock, and optionally mirrored to a rotated file. One pump runs per
// stream per live process; done is closed once the stream is fully
// drained.
func (s *Supervisor) pump(key string, ring *logring.Ring, r io.Reader, stream string, mirror io.WriteCloser, done chan<- struct{}) {
	defer close(done)
	if mirror != nil {
		defer func() { _ = mirror.Close() }()
	}
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			text := strings.ToValidUTF8(strings.TrimRight(line, "\r\n"), "�")
			s.mu.Lock()
			ring.Append(logring.Entry{At: time.Now(), Stream: stream, Line: text})
			s.mu.Unlock()
			if mirror != nil {
				_, _ = mirror.Write([]byte(text + "\n"))
			}
			metrics.AddCapturedLines(key, stream, 1)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.logger.Debug("output pump closed", "key", key, "stream", stream, "error", err)
			}
			return
		}
	}
}

// waitLoop reaps the process, reconciles runtime state, and applies
// the crash-restart policy. Exactly one waiter runs per live process.
func (s *Supervisor) waitLoop(key string, cmd *exec.Cmd, done chan struct{}, pumps ...<-chan struct{}) {
	// Wait closes the parent's pipe ends, discarding anything still
	// buffered. The pumps hit EOF when the child exits, so drain them
	// fully before reaping.
	for _, p := range pumps {
		<-p
	}
	werr := cmd.Wait()
	code := 0
	if werr != nil {
		var ee *exec.ExitError
		if errors.As(werr, &ee) {
			code = ee.ExitCode()
		} else {
			code = -1
		}
	}

	s.mu.Lock()
	st := s.states[key]
	cfg := s.configs[key]
	exitedPID := st.pid
	st.cmd = nil
	st.pid = 0
	st.exitCode = &code
	st.lastExitAt = time.Now()
	st.logs.Append(logring.Entry{
		At:     time.Now(),
		Stream: logring.StreamManager,
		Line:   fmt.Sprintf("process exited with code %d", code),
	})
	crash := !st.stopRequested && !s.closing && code != 0
	restartOnCrash := cfg.RestartOnCrash
	attempt := 0
	if crash && restartOnCrash {
		st.restartAttempts++
		attempt = st.restartAttempts
	}
	s.mu.Unlock()
	close(done)

	metrics.IncStop(key)
	metrics.SetRunning(key, false)
	evt := history.Event{Type: history.EventStop, Key: key, PID: exitedPID, OccurredAt: time.Now(), ExitCode: &code}
	if crash {
		evt.Type = history.EventCrash
		s.logger.Warn("process exited unexpectedly", "key", key, "code", code)
	} else {
		s.logger.Info("process exited", "key", key, "code", code)
	}
	s.emit(evt)

	if crash && restartOnCrash {
		delay := backoffDelay(attempt)
		metrics.IncCrashRestart(key)
		s.logger.Info("scheduling crash restart", "key", key, "attempt", attempt, "delay", delay)
		go func() {
			// The backoff sleep is not cancelled by a concurrent stop;
			// the eventual start tolerates having lost that race.
			time.Sleep(delay)
			if _, err := s.Start(key); err != nil {
				switch {
				case errors.Is(err, ErrAlreadyRunning):
					s.logger.Debug("crash restart skipped, already running", "key", key)
				case errors.Is(err, ErrShuttingDown):
					s.logger.Debug("crash restart skipped, shutting down", "key", key)
				default:
					s.logger.Error("crash restart failed", "key", key, "error", err)
				}
			}
		}()
	}
}

// backoffDelay returns min(backoffCeiling, attempt * backoffBase).
func backoffDelay(attempt int) time.Duration {
	d := time.Duration(attempt) * backoffBase
	if d > backoffCeiling {
		return backoffCeiling
	}
	return d
}

// localDate formats t's host-local calendar date.
func localDate(t time.Time) string { return t.Format("2006-01-02") }
