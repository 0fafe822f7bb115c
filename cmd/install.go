package cmd

import (
	"context"
	"fmt"
	"path"

	"github.com/go-git/go-billy/v5/util"
	"github.com/spf13/cobra"

	"zonerun/internal/containerizer"
	"zonerun/internal/execute"
	"zonerun/internal/install"
	"zonerun/internal/report"
	"zonerun/internal/taskgroup"
)

var (
	installProject        projectFlags
	installPackageDir     string
	installPackageVersion string
)

// installCmd represents the install command
var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install iRODS packages on a running project",
	Long: `The install command installs iRODS packages on every server container of
an already running compose project.

Without --package-directory, official packages are installed from the
platform repositories, pinned to --package-version when given.

Example usage:
  zonerun install --project-directory projects/ubuntu-22.04-postgres-14 --package-directory ./build
  zonerun install --project-name ubuntu-2204-postgres-14 --package-version 4.3.1`,
	Args: usageArgs(cobra.NoArgs),
	RunE: logFatal(runInstall),
}

func init() {
	installProject.register(installCmd)
	installCmd.Flags().StringVar(&installPackageDir, "package-directory", "", "Directory with iRODS packages to install")
	installCmd.Flags().StringVar(&installPackageVersion, "package-version", "", "Version of the official iRODS packages to install")

	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, _ []string) error {
	if installPackageDir != "" && installPackageVersion != "" {
		return usageErrorf("--package-directory and --package-version are mutually exclusive")
	}

	rp, err := installProject.resolve()
	if err != nil {
		return err
	}
	rt, err := newRuntime(cfg.Run.Runtime)
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)

	containers, err := runningContainers(ctx, rt, rp.project)
	if err != nil {
		return err
	}

	fs := newFilesystem()
	installer := install.NewInstaller(rt, execute.NewExecutor(rt), fs, cfg.Run.Parallelism)

	var res *taskgroup.Results
	if installPackageDir != "" {
		dir, tmpErr := util.TempDir(fs, "", rp.project.Name)
		if tmpErr != nil {
			return fmt.Errorf("failed to create archive directory: %w", tmpErr)
		}
		defer util.RemoveAll(fs, dir)

		res, err = installer.InstallLocal(ctx, install.LocalParams{
			Platform:       rp.platform().Repository,
			DatabaseEngine: rp.database().Repository,
			PackageDir:     absOrEmpty(installPackageDir),
			ArchivePath:    path.Join(dir, rp.project.Name+"_packages.tar"),
			Resolution:     install.Resolution(cfg.Run.PackageResolution),
		}, containers)
	} else {
		res, err = installer.InstallOfficial(ctx, install.OfficialParams{
			Platform:       rp.platform().Repository,
			DatabaseEngine: rp.database().Repository,
			Version:        installPackageVersion,
		}, containers)
	}

	report.Tasks(cmd.OutOrStdout(), res)
	return err
}

// runningContainers lists the containers of a project that must already be
// up.
func runningContainers(ctx context.Context, rt containerizer.ContainerRuntime, project containerizer.Project) ([]containerizer.Container, error) {
	containers, err := rt.ListContainers(ctx, project)
	if err != nil {
		return nil, err
	}
	if len(containers) == 0 {
		return nil, fmt.Errorf("no running containers found for project %s", project.Name)
	}
	return containers, nil
}
