package commands

import (
	"github.com/spf13/cobra"

	"resolwe-go/sdk/internal/cli/ui"
	"resolwe-go/sdk/pkg/models"
)

var statusCmd = &cobra.Command{
	Use:   "status <id>...",
	Short: "Refresh data objects once and print their status",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	if err := checkFormat(); err != nil {
		return err
	}
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}
	e, err := loadEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer e.close()

	snapshots := make([]*models.Data, 0, len(ids))
	for _, id := range ids {
		d, err := e.runs.Status(cmd.Context(), id)
		if err != nil {
			return err
		}
		snapshots = append(snapshots, d)
	}
	if outputFormat != ui.FormatTable {
		return ui.Encode(cmd.OutOrStdout(), outputFormat, snapshots)
	}
	return ui.DataTable(cmd.OutOrStdout(), snapshots)
}
