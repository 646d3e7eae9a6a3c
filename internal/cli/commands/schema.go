package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"resolwe-go/sdk/internal/cli/ui"
)

var schemaCmd = &cobra.Command{
	Use:   "schema <slug>",
	Short: "Show the input schema of the latest version of a process",
	Args:  cobra.ExactArgs(1),
	RunE:  runSchema,
}

func runSchema(cmd *cobra.Command, args []string) error {
	if err := checkFormat(); err != nil {
		return err
	}
	e, err := loadEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer e.close()

	process, err := e.runs.GetProcess(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if outputFormat != ui.FormatTable {
		return ui.Encode(out, outputFormat, process)
	}
	fmt.Fprintf(out, "%s %s (%s)\n", ui.Bold(process.Slug), process.Version, process.Name)
	if process.Description != "" {
		fmt.Fprintln(out, process.Description)
	}
	fmt.Fprintln(out)
	return ui.SchemaTree(out, process.InputSchema)
}
