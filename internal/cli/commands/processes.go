package commands

import (
	"github.com/spf13/cobra"

	"resolwe-go/sdk/internal/cli/ui"
)

var processCategory string

var processesCmd = &cobra.Command{
	Use:     "processes",
	Aliases: []string{"ps"},
	Short:   "List process definitions",
	Example: `  $ resolwe processes
  $ resolwe processes --category analyses: -o json`,
	Args: cobra.NoArgs,
	RunE: runProcesses,
}

func init() {
	processesCmd.Flags().StringVar(&processCategory, "category", "", "Only list processes in this category")
}

func runProcesses(cmd *cobra.Command, args []string) error {
	if err := checkFormat(); err != nil {
		return err
	}
	e, err := loadEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer e.close()

	processes, err := e.runs.ListProcesses(cmd.Context(), processCategory)
	if err != nil {
		return err
	}
	if outputFormat != ui.FormatTable {
		return ui.Encode(cmd.OutOrStdout(), outputFormat, processes)
	}
	return ui.ProcessTable(cmd.OutOrStdout(), processes)
}
