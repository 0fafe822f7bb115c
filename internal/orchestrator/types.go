package orchestrator

import (
	"time"

	"zonerun/internal/containerizer"
	"zonerun/internal/dbsetup"
	"zonerun/internal/install"
	"zonerun/internal/irodssetup"
	"zonerun/internal/job"
	"zonerun/internal/naming"
	"zonerun/internal/taskgroup"
)

// State is a step of a run.
type State string

const (
	StateCreated           State = "Created"
	StateTopologyUp        State = "TopologyUp"
	StatePackagesInstalled State = "PackagesInstalled"
	StateCatalogReady      State = "CatalogReady"
	StateProviderReady     State = "ProviderReady"
	StateConsumersReady    State = "ConsumersReady"
	StateExecuting         State = "Executing"
	StateCollected         State = "Collected"
	StateTornDown          State = "TornDown"
)

// StateChangeCallback is called on every state change of a run. err is the
// error that sent the run to cleanup, if any.
type StateChangeCallback func(oldState, newState State, err error)

// StateChangedEvent is a state change sent to subscribers.
type StateChangedEvent struct {
	Project   string
	OldState  State
	NewState  State
	Error     error
	Timestamp time.Time
}

// CommandPolicy decides what happens after a command exits nonzero.
type CommandPolicy string

const (
	// PolicyContinue runs every command and reports the last exit code.
	PolicyContinue CommandPolicy = "continue"
	// PolicyAbort stops at the first nonzero exit code and reports it.
	PolicyAbort CommandPolicy = "abort"
)

// Plan is everything one run needs.
type Plan struct {
	Project containerizer.Project
	// Identity names the platform and database images of Project.
	Identity naming.ProjectIdentity
	Job      *job.Context

	ConsumerCount int

	// InstallOfficial installs released packages when the job has no
	// package directory. Without it, and without a package version, the
	// images are expected to come with the packages.
	InstallOfficial   bool
	PackageResolution install.Resolution

	Catalog       CatalogSettings
	Setup         irodssetup.Config
	SkipTestSetup bool

	CommandPolicy CommandPolicy
	// WaitAll waits for every server instead of only the command target.
	WaitAll bool
}

// CatalogSettings describe the catalog database.
type CatalogSettings struct {
	Name     string
	User     string
	Password string
	Options  dbsetup.Options
}

// PhaseResult is the outcome of one step.
type PhaseResult struct {
	State    State // State entered on success
	Duration time.Duration
	Skipped  bool
	Err      error
}

// Outcome describes a finished run.
type Outcome struct {
	// ExitCode of the last command run, -1 if none ran.
	ExitCode int
	// CommandsRun counts the commands started.
	CommandsRun int
	// Reached is the last state before cleanup.
	Reached State
	Phases  []PhaseResult
	// Tasks holds the per-container results of fan-out steps.
	Tasks []*taskgroup.Results
}
