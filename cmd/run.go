package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"zonerun/internal/dbsetup"
	"zonerun/internal/install"
	"zonerun/internal/job"
	"zonerun/internal/naming"
	"zonerun/internal/orchestrator"
	"zonerun/internal/report"
	"zonerun/pkg/logging"
)

var (
	runProject         projectFlags
	runTarget          string
	runOutputDirectory string
	runJobName         string
	runPackageDir      string
	runPackageVersion  string
	runInstallOfficial bool
	runConsumerCount   int
	runSetupTimeout    time.Duration
	runCommandPolicy   string
	runWaitAll         bool
	runSkipTestSetup   bool

	// newFilesystem is replaced in tests.
	newFilesystem = func() billy.Filesystem { return osfs.New("/") }
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [flags] COMMANDS...",
	Short: "Run commands in a freshly built iRODS zone",
	Long: `The run command builds a zone from a docker compose project, runs the
given commands one after another on one of its servers and tears the zone
down again.

Steps:
1. Bring up the project with the configured number of catalog service consumers
2. Install iRODS packages from --package-directory, or official packages when
   --package-version or --install-official is given
3. Create the catalog database and its user
4. Set up the catalog service provider, then every consumer concurrently
5. Wait for the server setup to complete
6. Run the commands as the iRODS service account

Whatever happens, the server logs are saved to
<output-directory>/<job>/logs/ and the project is torn down with its volumes.
The output of the run is kept in <output-directory>/<job>/script_output.log.

The exit code is the exit code of the last command. When the zone could not
be built the exit code is 125.

Example usage:
  zonerun run --project-directory projects/ubuntu-22.04-postgres-14 'python3 scripts/run_tests.py --run_python_suite'
  zonerun run -p ubuntu:22.04 -d postgres:14 --package-directory ./build 'echo a' 'ils'
  zonerun run -t "irods-catalog-consumer 2" --package-version 4.3.1 'ils'`,
	Args: usageArgs(cobra.MinimumNArgs(1)),
	RunE: runRun,
}

func init() {
	runProject.register(runCmd)
	runCmd.Flags().StringVarP(&runTarget, "run-on-service-instance", "t", "irods-catalog-provider 1", "Service instance to run the commands on, as \"SERVICE INSTANCE\"")
	runCmd.Flags().StringVarP(&runOutputDirectory, "output-directory", "o", "", "Directory for job output (default is a temporary directory)")
	runCmd.Flags().StringVarP(&runJobName, "job-name", "j", "", "Prefix of the job name")
	runCmd.Flags().StringVar(&runPackageDir, "package-directory", "", "Directory with iRODS packages to install")
	runCmd.Flags().StringVar(&runPackageVersion, "package-version", "", "Version of the official iRODS packages to install")
	runCmd.Flags().BoolVar(&runInstallOfficial, "install-official", false, "Install the latest official packages when no version is given")
	runCmd.Flags().IntVarP(&runConsumerCount, "consumer-count", "n", 0, "Number of catalog service consumers (default from config)")
	runCmd.Flags().DurationVar(&runSetupTimeout, "setup-timeout", 0, "How long to wait for server setup (default from config)")
	runCmd.Flags().StringVar(&runCommandPolicy, "command-policy", "", "continue or abort after a failing command (default from config)")
	runCmd.Flags().BoolVar(&runWaitAll, "wait-all", false, "Wait for every server to finish setup, not only the command target")
	runCmd.Flags().BoolVar(&runSkipTestSetup, "skip-test-configuration", false, "Do not prepare the servers for the iRODS test suite")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	if runPackageDir != "" && runPackageVersion != "" {
		return usageErrorf("--package-directory and --package-version are mutually exclusive")
	}
	target, err := parseTarget(runTarget)
	if err != nil {
		return err
	}
	policy, err := commandPolicy(runCommandPolicy)
	if err != nil {
		return err
	}
	consumers := cfg.Run.ConsumerCount
	if cmd.Flags().Changed("consumer-count") {
		consumers = runConsumerCount
	}
	timeout := cfg.Run.SetupTimeout
	if cmd.Flags().Changed("setup-timeout") {
		timeout = runSetupTimeout
	}

	rp, err := runProject.resolve()
	if err != nil {
		return err
	}

	fs := newFilesystem()
	jc, err := job.New(fs, job.Params{
		Project:        rp.project.Name,
		Prefix:         runJobName,
		OutputRoot:     absOrEmpty(runOutputDirectory),
		SetupTimeout:   timeout,
		PackageDir:     absOrEmpty(runPackageDir),
		PackageVersion: runPackageVersion,
		Commands:       args,
		Target:         target,
	})
	if err != nil {
		return err
	}

	scriptLog, err := fs.Create(jc.ScriptLog())
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", jc.ScriptLog(), err)
	}
	defer scriptLog.Close()
	logging.InitForCLI(logLevel(), os.Stderr, scriptLog)
	defer logging.InitForCLI(logLevel(), os.Stderr)

	var problems atomic.Int64
	logging.SetEntryHook(func(e logging.LogEntry) {
		if e.Level >= logging.LevelError {
			problems.Add(1)
		}
	})
	defer logging.SetEntryHook(nil)

	logging.Info("CLI", "Job %s writes to %s", jc.Name(), jc.OutputDir())

	rt, err := newRuntime(cfg.Run.Runtime)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	o := orchestrator.New(orchestrator.Config{
		Runtime:     rt,
		FS:          fs,
		Parallelism: cfg.Run.Parallelism,
	})
	outcome, err := o.Run(ctx, orchestrator.Plan{
		Project:           rp.project,
		Identity:          rp.identity,
		Job:               jc,
		ConsumerCount:     consumers,
		InstallOfficial:   runInstallOfficial,
		PackageResolution: install.Resolution(cfg.Run.PackageResolution),
		Catalog:           catalogSettings(rp.database()),
		Setup:             cfg.SetupConfig(dbsetup.DefaultPort(rp.database().Repository)),
		SkipTestSetup:     runSkipTestSetup,
		CommandPolicy:     policy,
		WaitAll:           runWaitAll,
	})

	report.Summary(cmd.OutOrStdout(), outcome)
	if n := problems.Load(); n > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "%d error(s) logged, see %s\n", n, jc.ScriptLog())
	}

	if err != nil {
		return err
	}
	return commandExit(outcome.ExitCode, outcome.CommandsRun)
}

// commandExit maps the exit code of the last command to the error returned
// by the run command. Negative codes mean the command died without one.
func commandExit(code, ran int) error {
	switch {
	case ran == 0 || code == 0:
		return nil
	case code < 0:
		return &CommandExitError{Code: ExitCodeOrchestrationFailure}
	default:
		return &CommandExitError{Code: code}
	}
}

func catalogSettings(database naming.ImageRef) orchestrator.CatalogSettings {
	return orchestrator.CatalogSettings{
		Name:     cfg.Database.Name,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Options: dbsetup.Options{
			Port:         cfg.Database.PortOr(dbsetup.DefaultPort(database.Repository)),
			RootPassword: cfg.Database.RootPassword,
			UserHost:     cfg.Database.UserHost,
		},
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func absOrEmpty(p string) string {
	if p == "" {
		return ""
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}
