package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5"

	"zonerun/internal/containerizer"
	"zonerun/internal/dbsetup"
	"zonerun/internal/execute"
	"zonerun/internal/install"
	"zonerun/internal/irodssetup"
	"zonerun/internal/naming"
	"zonerun/internal/taskgroup"
	"zonerun/pkg/logging"
)

const subsystem = "Orchestrator"

// Config holds the collaborators of an orchestrator.
type Config struct {
	Runtime containerizer.ContainerRuntime
	// Runner defaults to an executor on Runtime.
	Runner execute.Runner
	// FS holds package directories, the job directory and collected logs.
	FS billy.Filesystem
	// Databases defaults to dbsetup.DefaultRegistry().
	Databases *dbsetup.Registry
	// Parallelism bounds fan-out steps, zero for no bound.
	Parallelism int
	// LogPath is the server log directory inside containers.
	LogPath string
	// WaitInterval overrides the sentinel poll interval.
	WaitInterval time.Duration
}

// Orchestrator runs plans. It can run several plans one after another but
// not concurrently.
type Orchestrator struct {
	runtime   containerizer.ContainerRuntime
	runner    execute.Runner
	fs        billy.Filesystem
	databases *dbsetup.Registry
	limit     int
	logPath   string
	interval  time.Duration

	mu          sync.RWMutex
	state       State
	callback    StateChangeCallback
	subscribers []chan<- StateChangedEvent
	project     string
}

// New creates a new orchestrator.
func New(cfg Config) *Orchestrator {
	runner := cfg.Runner
	if runner == nil {
		runner = execute.NewExecutor(cfg.Runtime)
	}
	databases := cfg.Databases
	if databases == nil {
		databases = dbsetup.DefaultRegistry()
	}
	interval := cfg.WaitInterval
	if interval == 0 {
		interval = irodssetup.DefaultPollInterval
	}
	return &Orchestrator{
		runtime:   cfg.Runtime,
		runner:    runner,
		fs:        cfg.FS,
		databases: databases,
		limit:     cfg.Parallelism,
		logPath:   cfg.LogPath,
		interval:  interval,
		state:     StateCreated,
	}
}

// SetStateChangeCallback sets the function called on state changes.
func (o *Orchestrator) SetStateChangeCallback(cb StateChangeCallback) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.callback = cb
}

// SubscribeToStateChanges returns a channel for state change events. Events
// are dropped for subscribers that do not keep up.
func (o *Orchestrator) SubscribeToStateChanges() <-chan StateChangedEvent {
	ch := make(chan StateChangedEvent, 32)
	o.mu.Lock()
	o.subscribers = append(o.subscribers, ch)
	o.mu.Unlock()
	return ch
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

func (o *Orchestrator) transition(to State, err error) {
	o.mu.Lock()
	from := o.state
	o.state = to
	cb := o.callback
	subscribers := make([]chan<- StateChangedEvent, len(o.subscribers))
	copy(subscribers, o.subscribers)
	project := o.project
	o.mu.Unlock()

	logging.Debug(subsystem, "Run of %s: %s -> %s", project, from, to)
	if cb != nil {
		cb(from, to, err)
	}

	event := StateChangedEvent{Project: project, OldState: from, NewState: to, Error: err, Timestamp: time.Now()}
	for _, sub := range subscribers {
		select {
		case sub <- event:
		default:
			logging.Debug(subsystem, "State change subscriber blocked, skipping %s -> %s", from, to)
		}
	}
}

// Run builds the zone of plan, runs its commands and always collects logs
// and tears the zone down again. The outcome is returned even when err is
// set.
func (o *Orchestrator) Run(ctx context.Context, plan Plan) (outcome *Outcome, err error) {
	if plan.Job == nil {
		return nil, fmt.Errorf("plan has no job")
	}

	o.mu.Lock()
	o.project = plan.Project.Name
	o.state = StateCreated
	o.mu.Unlock()

	outcome = &Outcome{ExitCode: -1, Reached: StateCreated}
	r := &run{o: o, plan: plan, outcome: outcome}
	zone := &topology{run: r}

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("run panicked: %v\n%s", p, debug.Stack())
		}
		if err != nil {
			logging.Critical(subsystem, err, "Run of %s failed in state %s", plan.Project.Name, outcome.Reached)
		}
		if releaseErr := zone.Release(ctx, err); releaseErr != nil {
			err = errors.Join(err, releaseErr)
		}
	}()

	err = r.execute(ctx, zone)
	return outcome, err
}

// run holds the state of one Run call.
type run struct {
	o       *Orchestrator
	plan    Plan
	outcome *Outcome
}

func (r *run) phase(state State, fn func() (skipped bool, err error)) error {
	start := time.Now()
	skipped, err := fn()
	r.outcome.Phases = append(r.outcome.Phases, PhaseResult{State: state, Duration: time.Since(start), Skipped: skipped, Err: err})
	if err != nil {
		return err
	}
	r.outcome.Reached = state
	r.o.transition(state, nil)
	return nil
}

func (r *run) tasks(res *taskgroup.Results) {
	if res != nil {
		r.outcome.Tasks = append(r.outcome.Tasks, res)
	}
}

func (r *run) execute(ctx context.Context, zone *topology) error {
	plan := r.plan
	o := r.o

	err := r.phase(StateTopologyUp, func() (bool, error) {
		logging.Info(subsystem, "Bringing up project %s with %d consumer(s)", plan.Project.Name, plan.ConsumerCount)
		containers, err := o.runtime.BringUp(ctx, plan.Project, map[string]int{string(naming.ServiceConsumer): plan.ConsumerCount})
		zone.up(containers)
		if err != nil {
			return false, fmt.Errorf("failed to bring up project %s: %w", plan.Project.Name, err)
		}
		return false, nil
	})
	if err != nil {
		return err
	}

	err = r.phase(StatePackagesInstalled, func() (bool, error) {
		return r.installPackages(ctx, zone.containers)
	})
	if err != nil {
		return err
	}

	err = r.phase(StateCatalogReady, func() (bool, error) {
		return false, dbsetup.SetupCatalog(ctx, o.runtime, o.runner, o.databases, dbsetup.CatalogParams{
			Project:  plan.Project.Name,
			Database: plan.Identity.DatabaseImage(),
			Name:     plan.Catalog.Name,
			User:     plan.Catalog.User,
			Password: plan.Catalog.Password,
			Options:  plan.Catalog.Options,
		})
	})
	if err != nil {
		return err
	}

	setup := irodssetup.NewSetup(o.runtime, o.runner, o.limit)

	err = r.phase(StateProviderReady, func() (bool, error) {
		return false, setup.SetupProvider(ctx, plan.Project.Name, plan.Setup)
	})
	if err != nil {
		return err
	}

	err = r.phase(StateConsumersReady, func() (bool, error) {
		res, err := setup.SetupConsumers(ctx, plan.Project.Name, plan.ConsumerCount, plan.Setup)
		r.tasks(res)
		if err != nil {
			return false, err
		}
		if !plan.SkipTestSetup {
			logging.Info(subsystem, "Configuring servers for testing")
			if err := setup.ConfigureForTesting(ctx, zone.containers, plan.Setup.ServiceAccountName); err != nil {
				return false, err
			}
		}
		return false, nil
	})
	if err != nil {
		return err
	}

	target, err := o.runtime.GetContainer(ctx, plan.Job.Target().ContainerName(plan.Project.Name))
	if err != nil {
		return fmt.Errorf("failed to resolve command target: %w", err)
	}

	return r.phase(StateExecuting, func() (bool, error) {
		if err := r.waitForSetup(ctx, target, zone.containers); err != nil {
			return false, err
		}
		last, ran, err := RunCommands(ctx, o.runner, target, plan.Job.Commands(), plan.CommandPolicy, plan.Setup.ServiceAccountName)
		r.outcome.ExitCode = last
		r.outcome.CommandsRun = ran
		return false, err
	})
}

func (r *run) installPackages(ctx context.Context, containers []containerizer.Container) (bool, error) {
	plan := r.plan
	installer := install.NewInstaller(r.o.runtime, r.o.runner, r.o.fs, r.o.limit)

	var res *taskgroup.Results
	var err error
	switch {
	case plan.Job.PackageDir() != "":
		logging.Info(subsystem, "Installing packages from %s", plan.Job.PackageDir())
		res, err = installer.InstallLocal(ctx, install.LocalParams{
			Platform:       plan.Identity.PlatformImage().Repository,
			DatabaseEngine: plan.Identity.DatabaseImage().Repository,
			PackageDir:     plan.Job.PackageDir(),
			ArchivePath:    plan.Job.PackagesArchive(),
			Resolution:     plan.PackageResolution,
		}, containers)
	case plan.Job.PackageVersion() != "" || plan.InstallOfficial:
		logging.Info(subsystem, "Installing official packages (version %q, empty is the latest)", plan.Job.PackageVersion())
		res, err = installer.InstallOfficial(ctx, install.OfficialParams{
			Platform:       plan.Identity.PlatformImage().Repository,
			DatabaseEngine: plan.Identity.DatabaseImage().Repository,
			Version:        plan.Job.PackageVersion(),
		}, containers)
	default:
		logging.Info(subsystem, "No package source given, using the packages of the images")
		return true, nil
	}
	r.tasks(res)
	return false, err
}

func (r *run) waitForSetup(ctx context.Context, target containerizer.Container, containers []containerizer.Container) error {
	timeout := r.plan.Job.SetupTimeout()
	if !r.plan.WaitAll {
		w := irodssetup.NewWaiter(r.o.runner, target)
		w.SetInterval(r.o.interval)
		return w.Wait(ctx, timeout)
	}

	var servers []containerizer.Container
	for _, c := range containers {
		if !naming.IsServiceContainer(c.Name, naming.ServiceDatabase) {
			servers = append(servers, c)
		}
	}
	res := irodssetup.WaitAll(ctx, r.o.runner, servers, timeout, r.o.interval)
	r.tasks(res)
	return res.Err()
}

// RunCommands runs commands in order on c as the service account in its
// home directory. It returns the exit code of the last command run and how
// many commands ran. Under PolicyAbort it stops after the first nonzero exit
// code. An error means a command could not be run at all or ctx ended.
func RunCommands(ctx context.Context, runner execute.Runner, c containerizer.Container, commands []string, policy CommandPolicy, serviceAccount string) (int, int, error) {
	last, ran := -1, 0
	for _, command := range commands {
		logging.Info(subsystem, "Running [%s] on %s", command, c.Name)
		code, err := runner.Execute(ctx, c, command, execute.Options{
			User:    serviceAccount,
			WorkDir: irodssetup.IrodsHome,
			Stream:  true,
		})
		ran++
		if err != nil {
			return last, ran, fmt.Errorf("failed to run %q: %w", command, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return last, ran, fmt.Errorf("interrupted while running %q: %w", command, ctxErr)
		}
		last = code
		if code != 0 {
			logging.Warn(subsystem, "Command [%s] on %s exited with code %d", command, c.Name, code)
			if policy == PolicyAbort {
				logging.Warn(subsystem, "Skipping %d remaining command(s)", len(commands)-ran)
				break
			}
		}
	}
	return last, ran, nil
}
