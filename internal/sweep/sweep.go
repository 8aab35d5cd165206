// Package sweep drives the supervisor's autostart sweep on a wall
// clock schedule. The supervisor itself runs no timer; this keeps
// timing policy outside it and the sweep directly invokable in tests.
package sweep

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

// Runner periodically invokes fn according to a cron schedule
// ("@every 1m" or a standard five-field expression).
type Runner struct {
	c *cron.Cron
}

func New(schedule string, fn func()) (*Runner, error) {
	c := cron.New()
	if _, err := c.AddFunc(schedule, fn); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return &Runner{c: c}, nil
}

// Start launches the schedule in its own goroutine.
func (r *Runner) Start() { r.c.Start() }

// Stop cancels the schedule and waits for an in-flight sweep to finish.
func (r *Runner) Stop() {
	ctx := r.c.Stop()
	<-ctx.Done()
}
