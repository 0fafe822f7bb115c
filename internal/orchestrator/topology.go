package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"zonerun/internal/collect"
	"zonerun/internal/containerizer"
	"zonerun/pkg/logging"
)

// topology owns the containers of a run. Release collects their logs and
// tears them down, once.
type topology struct {
	run *run

	containers []containerizer.Container
	once       sync.Once
	releaseErr error
}

func (t *topology) up(containers []containerizer.Container) {
	t.containers = containers
}

// Release runs cleanup on a context that survives cancellation of ctx, so
// an interrupted run still cleans up. cause is the error that ended the
// run, if any.
func (t *topology) Release(ctx context.Context, cause error) error {
	t.once.Do(func() {
		t.releaseErr = t.release(context.WithoutCancel(ctx), cause)
	})
	return t.releaseErr
}

func (t *topology) release(ctx context.Context, cause error) error {
	r := t.run
	o := r.o
	project := r.plan.Project

	containers := t.containers
	if len(containers) == 0 {
		listed, err := o.runtime.ListContainers(ctx, project)
		if err != nil {
			logging.Warn(subsystem, "Could not list containers of %s for log collection: %v", project.Name, err)
		}
		containers = listed
	}

	start := time.Now()
	logging.Info(subsystem, "Collecting logs into %s", r.plan.Job.LogsDir())
	res, err := collect.NewCollector(o.runtime, o.fs, o.logPath).CollectLogs(ctx, containers, r.plan.Job.LogsDir())
	if err != nil {
		logging.Error(subsystem, err, "Log collection failed")
	}
	r.tasks(res)
	r.outcome.Phases = append(r.outcome.Phases, PhaseResult{State: StateCollected, Duration: time.Since(start)})
	o.transition(StateCollected, cause)

	start = time.Now()
	logging.Info(subsystem, "Tearing down project %s", project.Name)
	downErr := o.runtime.TearDown(ctx, project, true)
	if downErr != nil {
		downErr = fmt.Errorf("failed to tear down project %s: %w", project.Name, downErr)
		logging.Error(subsystem, downErr, "Teardown failed")
	}
	r.outcome.Phases = append(r.outcome.Phases, PhaseResult{State: StateTornDown, Duration: time.Since(start), Err: downErr})
	o.transition(StateTornDown, errors.Join(cause, downErr))
	return downErr
}
