package cmd

import (
	"github.com/spf13/cobra"

	"zonerun/internal/containerizer"
	"zonerun/internal/execute"
	"zonerun/internal/naming"
	"zonerun/internal/orchestrator"
	"zonerun/pkg/logging"
)

var (
	execProject projectFlags
	execTarget  string
	execAll     bool
	execPolicy  string
)

// execCmd represents the exec command
var execCmd = &cobra.Command{
	Use:   "exec [flags] COMMANDS...",
	Short: "Run commands on a running project",
	Long: `The exec command runs commands one after another on a server of an
already running compose project, as the iRODS service account. With --all
the commands run on every server container in turn.

The exit code is the exit code of the last command. With --all it is the
first nonzero one among the containers.

Example usage:
  zonerun exec --project-name ubuntu-2204-postgres-14 'ils' 'ilsresc'
  zonerun exec --project-name ubuntu-2204-postgres-14 --all 'irods_version'`,
	Args: usageArgs(cobra.MinimumNArgs(1)),
	RunE: logFatal(runExec),
}

func init() {
	execProject.register(execCmd)
	execCmd.Flags().StringVarP(&execTarget, "run-on-service-instance", "t", "irods-catalog-provider 1", "Service instance to run the commands on, as \"SERVICE INSTANCE\"")
	execCmd.Flags().BoolVar(&execAll, "all", false, "Run on every server container instead of one")
	execCmd.Flags().StringVar(&execPolicy, "command-policy", "", "continue or abort after a failing command (default from config)")

	rootCmd.AddCommand(execCmd)
}

func runExec(cmd *cobra.Command, args []string) error {
	target, err := parseTarget(execTarget)
	if err != nil {
		return err
	}
	policy, err := commandPolicy(execPolicy)
	if err != nil {
		return err
	}

	rp, err := execProject.resolve()
	if err != nil {
		return err
	}
	rt, err := newRuntime(cfg.Run.Runtime)
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)

	var containers []containerizer.Container
	if execAll {
		all, err := runningContainers(ctx, rt, rp.project)
		if err != nil {
			return err
		}
		for _, c := range all {
			if !naming.IsServiceContainer(c.Name, naming.ServiceDatabase) {
				containers = append(containers, c)
			}
		}
	} else {
		c, err := rt.GetContainer(ctx, target.ContainerName(rp.project.Name))
		if err != nil {
			return err
		}
		containers = append(containers, c)
	}

	runner := execute.NewExecutor(rt)
	code := 0
	for _, c := range containers {
		last, _, err := orchestrator.RunCommands(ctx, runner, c, args, policy, cfg.Setup.ServiceAccountName)
		if err != nil {
			return err
		}
		logging.Info("CLI", "Commands on %s finished with code %d", c.Name, last)
		if code == 0 && last > 0 {
			code = last
		}
	}

	if code != 0 {
		return &CommandExitError{Code: code}
	}
	return nil
}
