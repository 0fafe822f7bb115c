package irodssetup

import (
	"context"
	"sync"
	"time"

	"zonerun/internal/containerizer"
	"zonerun/internal/execute"
	"zonerun/internal/taskgroup"
	"zonerun/pkg/logging"
)

// SentinelPath is created by a server once its setup finished.
const SentinelPath = "/var/lib/irods/setup_complete"

// DefaultPollInterval is the time between two sentinel checks.
const DefaultPollInterval = time.Second

// WaitState is the state of a Waiter.
type WaitState string

const (
	WaitStateWaiting   WaitState = "Waiting"
	WaitStateReady     WaitState = "Ready"
	WaitStateTimedOut  WaitState = "TimedOut"
	WaitStateCancelled WaitState = "Cancelled"
)

// Waiter waits for the setup of one container to finish.
type Waiter struct {
	runner    execute.Runner
	container containerizer.Container
	interval  time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	mu    sync.Mutex
	state WaitState
	polls int
}

// NewWaiter creates a waiter in state Waiting.
func NewWaiter(runner execute.Runner, c containerizer.Container) *Waiter {
	return &Waiter{
		runner:    runner,
		container: c,
		interval:  DefaultPollInterval,
		now:       time.Now,
		sleep:     sleepContext,
		state:     WaitStateWaiting,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// SetInterval changes the time between two sentinel checks.
func (w *Waiter) SetInterval(d time.Duration) {
	if d > 0 {
		w.interval = d
	}
}

// State returns the current state.
func (w *Waiter) State() WaitState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Polls returns how many times the sentinel was checked.
func (w *Waiter) Polls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.polls
}

func (w *Waiter) transition(to WaitState) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = to
}

// Wait checks for the sentinel once per interval until it exists or timeout
// passed. Failing checks are not errors; a passed timeout is a
// SetupTimeoutError. When ctx ends first the waiter is Cancelled and the
// context error is returned.
func (w *Waiter) Wait(ctx context.Context, timeout time.Duration) error {
	logging.Info(subsystem, "Waiting for setup of %s to finish", w.container.Name)

	start := w.now()
	for {
		elapsed := w.now().Sub(start)
		if elapsed >= timeout {
			w.transition(WaitStateTimedOut)
			return &SetupTimeoutError{Container: w.container.Name, Elapsed: elapsed}
		}

		code, err := w.runner.Execute(ctx, w.container, "stat "+SentinelPath, execute.Options{})
		w.mu.Lock()
		w.polls++
		w.mu.Unlock()
		if err == nil && code == 0 {
			w.transition(WaitStateReady)
			logging.Info(subsystem, "Setup of %s finished after %s", w.container.Name, elapsed)
			return nil
		}
		if err != nil {
			logging.Debug(subsystem, "Sentinel check on %s failed: %v", w.container.Name, err)
		}

		if err := w.sleep(ctx, w.interval); err != nil {
			w.transition(WaitStateCancelled)
			return err
		}
	}
}

// WaitAll waits for every container concurrently, one waiter each. A zero
// interval means DefaultPollInterval.
func WaitAll(ctx context.Context, runner execute.Runner, containers []containerizer.Container, timeout, interval time.Duration) *taskgroup.Results {
	g := taskgroup.New("setup-wait", 0)
	for _, c := range containers {
		w := NewWaiter(runner, c)
		w.SetInterval(interval)
		g.Go(c.Name, func() error { return w.Wait(ctx, timeout) })
	}
	return g.Wait()
}
