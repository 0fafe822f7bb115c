package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"zonerun/internal/config"
	"zonerun/internal/containerizer"
	"zonerun/pkg/logging"
)

// Exit codes for CLI commands. A run that got as far as executing commands
// exits with the code of its last command instead.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeUsage indicates invalid flags or arguments.
	ExitCodeUsage = 2
	// ExitCodeOrchestrationFailure indicates that bring-up, install, setup or
	// cleanup failed. It is outside the range our own test commands use.
	ExitCodeOrchestrationFailure = 125
)

var (
	verbosity   int
	configPath  string
	runtimeType string

	// cfg is loaded before any subcommand runs.
	cfg config.Config

	// newRuntime is replaced in tests.
	newRuntime = func(runtimeType string) (containerizer.ContainerRuntime, error) {
		return containerizer.NewContainerRuntime(runtimeType)
	}
)

// rootCmd represents the base command for the zonerun application.
var rootCmd = &cobra.Command{
	Use:   "zonerun",
	Short: "Run commands in a throwaway iRODS zone",
	Long: `zonerun brings up a docker compose topology of a catalog database, an
iRODS catalog service provider and catalog service consumers, installs and
sets up iRODS on it, runs commands on one of the servers and tears the
topology down again, keeping the server logs.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	logging.InitForCLI(logLevel(), os.Stderr)

	path := configPath
	required := cmd.Flags().Changed("config")
	if path == "" {
		path = config.DefaultConfigPath()
	}

	loaded, err := config.LoadConfig(path, required)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("runtime") {
		loaded.Run.Runtime = runtimeType
	}
	cfg = loaded
	return nil
}

func logLevel() logging.LogLevel {
	// errors are shown without any -v
	return logging.LevelFromVerbosity(verbosity + 1)
}

// SetVersion sets the version for the root command.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute runs the root command and exits with the matching exit code.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "zonerun version %s\n" .Version}}`)

	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		var exitErr *CommandExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(getExitCode(err))
	}
}

// CommandExitError carries the nonzero exit code of the last command run.
type CommandExitError struct {
	Code int
}

func (e *CommandExitError) Error() string {
	return fmt.Sprintf("last command exited with code %d", e.Code)
}

// UsageError is an invalid flag or argument.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }

func (e *UsageError) Unwrap() error { return e.Err }

func usageErrorf(format string, args ...interface{}) error {
	return &UsageError{Err: fmt.Errorf(format, args...)}
}

// usageArgs marks argument validation failures as usage errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return &UsageError{Err: err}
		}
		return nil
	}
}

// logFatal logs the error of a failed subcommand at CRITICAL before it
// propagates. Usage errors and nonzero command exit codes are not fatal.
func logFatal(run func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := run(cmd, args)
		var exitErr *CommandExitError
		var usageErr *UsageError
		if err != nil && !errors.As(err, &exitErr) && !errors.As(err, &usageErr) {
			logging.Critical("CLI", err, "%s failed", cmd.CommandPath())
		}
		return err
	}
}

// getExitCode determines the exit code for an error returned by a command.
func getExitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}

	var exitErr *CommandExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	var usageErr *UsageError
	if errors.As(err, &usageErr) {
		return ExitCodeUsage
	}

	return ExitCodeOrchestrationFailure
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase the level of output. CRITICAL and ERROR messages are always printed.")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default is $HOME/.config/zonerun/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&runtimeType, "runtime", "", "Container runtime: docker or docker-engine (default from config)")

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &UsageError{Err: err}
	})

	rootCmd.AddCommand(newVersionCmd())
}
