package cmd

import (
	"github.com/spf13/cobra"

	"zonerun/internal/collect"
	"zonerun/internal/report"
)

var (
	logsProject         projectFlags
	logsOutputDirectory string
	logsPath            string
)

// logsCmd represents the logs command
var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Collect server logs from a running project",
	Long: `The logs command saves the log directory of every server container of a
running compose project as a tar archive named after the container.

Example usage:
  zonerun logs --project-name ubuntu-2204-postgres-14 -o ./logs`,
	Args: usageArgs(cobra.NoArgs),
	RunE: logFatal(runLogs),
}

func init() {
	logsProject.register(logsCmd)
	logsCmd.Flags().StringVarP(&logsOutputDirectory, "output-directory", "o", ".", "Directory to save the log archives to")
	logsCmd.Flags().StringVar(&logsPath, "log-path", collect.DefaultLogPath, "Log directory inside the containers")

	rootCmd.AddCommand(logsCmd)
}

func runLogs(cmd *cobra.Command, _ []string) error {
	rp, err := logsProject.resolve()
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

	res, err := collect.NewCollector(rt, newFilesystem(), logsPath).CollectLogs(ctx, containers, absOrEmpty(logsOutputDirectory))
	report.Tasks(cmd.OutOrStdout(), res)
	if err != nil {
		return err
	}
	return res.Err()
}
