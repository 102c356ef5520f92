package tracking

import (
	"context"
	"time"
)

// Runner owns a Tracker and serializes every mutation behind a single
// goroutine: detection batches, operator commands and control ticks are
// multiplexed through one select loop, so the tracker itself never needs
// a lock.
type Runner struct {
	tracker      *Tracker
	observations <-chan []Observation
	commands     <-chan string
	period       time.Duration
	onTick       func(status Status, elapsed time.Duration)
}

// NewRunner wires a tracker to its input channels. period is the control
// tick cadence. onTick, when non-nil, is called after every control
// cycle with the resulting status and the cycle's processing time; it
// runs on the dispatch goroutine and must be cheap.
func NewRunner(tracker *Tracker, observations <-chan []Observation, commands <-chan string, period time.Duration, onTick func(Status, time.Duration)) *Runner {
	return &Runner{
		tracker:      tracker,
		observations: observations,
		commands:     commands,
		period:       period,
		onTick:       onTick,
	}
}

// Run dispatches until ctx is canceled.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.period)
	defer ticker.Stop()

	debugMsg("RUNNER", "control loop started")

	for {
		select {
		case <-ctx.Done():
			debugMsg("RUNNER", "control loop stopped")
			return

		case batch := <-r.observations:
			r.tracker.Ingest(batch)

		case cmd := <-r.commands:
			r.tracker.HandleCommand(cmd)

		case <-ticker.C:
			start := time.Now()
			status := r.tracker.Tick()
			if r.onTick != nil {
				r.onTick(status, time.Since(start))
			}
		}
	}
}
