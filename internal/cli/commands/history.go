package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"resolwe-go/sdk/internal/cli/ui"
)

var historyCmd = &cobra.Command{
	Use:   "history <id>",
	Short: "Show the journaled snapshots of a data object",
	Long: `Show every status change recorded for a data object. Requires the snapshot
journal (db.enable) to be configured.`,
	Args: cobra.ExactArgs(1),
	RunE: runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
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

	snapshots, err := e.runs.History(cmd.Context(), ids[0])
	if err != nil {
		return err
	}
	if outputFormat != ui.FormatTable {
		return ui.Encode(cmd.OutOrStdout(), outputFormat, snapshots)
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "OBSERVED\tSTATUS\tPROGRESS")
	for _, s := range snapshots {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.ObservedAt.Format("2006-01-02 15:04:05"), ui.Status(s.Status), ui.Progress(s.Progress))
	}
	return tw.Flush()
}
