package resources

import (
	"context"
	"errors"

	"github.com/shirou/gopsutil/v4/process"
)

// ErrNotRunning is returned when no live PID is available to sample.
var ErrNotRunning = errors.New("no running process to sample")

// PIDFunc reports the current PID of a managed process, or false when
// it is not running.
type PIDFunc func() (int, bool)

// Provider samples CPU/memory/thread statistics for a managed process
// via gopsutil. It satisfies the supervisor's metrics-provider
// capability, so resource figures show up in status responses.
type Provider struct {
	pid PIDFunc
}

func NewProvider(pid PIDFunc) *Provider { return &Provider{pid: pid} }

// Metrics returns a structured sample for the current PID.
func (p *Provider) Metrics(ctx context.Context) (map[string]any, error) {
	pid, ok := p.pid()
	if !ok {
		return nil, ErrNotRunning
	}
	proc, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return nil, err
	}
	sample := map[string]any{"pid": pid}
	if cpu, err := proc.CPUPercentWithContext(ctx); err == nil {
		sample["cpu_percent"] = cpu
	}
	if mem, err := proc.MemoryInfoWithContext(ctx); err == nil {
		sample["memory_rss_bytes"] = mem.RSS
		sample["memory_vms_bytes"] = mem.VMS
	}
	if pct, err := proc.MemoryPercentWithContext(ctx); err == nil {
		sample["memory_percent"] = pct
	}
	if threads, err := proc.NumThreadsWithContext(ctx); err == nil {
		sample["threads"] = threads
	}
	// File descriptors are Linux-only; omit the field elsewhere.
	if fds, err := proc.NumFDsWithContext(ctx); err == nil {
		sample["open_fds"] = fds
	}
	return sample, nil
}
