package cmd

import (
	"github.com/spf13/cobra"

	"zonerun/internal/dbsetup"
	"zonerun/internal/execute"
	"zonerun/internal/irodssetup"
	"zonerun/internal/report"
	"zonerun/pkg/logging"
)

var (
	setupProject         projectFlags
	setupConsumerCount   int
	setupExcludeCatalog  bool
	setupExcludeProvider bool
)

// setupCmd represents the setup command
var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Set up iRODS on a running project",
	Long: `The setup command creates the catalog database, sets up the catalog
service provider and then the catalog service consumers of an already
running compose project with installed packages.

Example usage:
  zonerun setup --project-directory projects/ubuntu-22.04-postgres-14 -n 3
  zonerun setup --project-name ubuntu-2204-postgres-14 --exclude-catalog-setup --exclude-provider-setup`,
	Args: usageArgs(cobra.NoArgs),
	RunE: logFatal(runSetup),
}

func init() {
	setupProject.register(setupCmd)
	setupCmd.Flags().IntVarP(&setupConsumerCount, "consumer-count", "n", 1, "Number of catalog service consumers to set up")
	setupCmd.Flags().BoolVar(&setupExcludeCatalog, "exclude-catalog-setup", false, "Skip creating the catalog database and its user")
	setupCmd.Flags().BoolVar(&setupExcludeProvider, "exclude-provider-setup", false, "Skip the setup of the catalog service provider")

	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, _ []string) error {
	if setupConsumerCount < 0 {
		return usageErrorf("consumer count must not be negative")
	}

	rp, err := setupProject.resolve()
	if err != nil {
		return err
	}
	rt, err := newRuntime(cfg.Run.Runtime)
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)
	runner := execute.NewExecutor(rt)

	if setupExcludeCatalog {
		logging.Info("CLI", "Skipping catalog setup")
	} else {
		catalog := catalogSettings(rp.database())
		err := dbsetup.SetupCatalog(ctx, rt, runner, dbsetup.DefaultRegistry(), dbsetup.CatalogParams{
			Project:  rp.project.Name,
			Database: rp.database(),
			Name:     catalog.Name,
			User:     catalog.User,
			Password: catalog.Password,
			Options:  catalog.Options,
		})
		if err != nil {
			return err
		}
	}

	setup := irodssetup.NewSetup(rt, runner, cfg.Run.Parallelism)
	setupCfg := cfg.SetupConfig(dbsetup.DefaultPort(rp.database().Repository))

	if setupExcludeProvider {
		logging.Info("CLI", "Skipping catalog service provider setup")
	} else if err := setup.SetupProvider(ctx, rp.project.Name, setupCfg); err != nil {
		return err
	}

	res, err := setup.SetupConsumers(ctx, rp.project.Name, setupConsumerCount, setupCfg)
	report.Tasks(cmd.OutOrStdout(), res)
	return err
}
