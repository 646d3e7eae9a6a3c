package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"resolwe-go/sdk/internal/cli/ui"
	"resolwe-go/sdk/pkg/models"
)

var (
	filesName  string
	filesField string
)

var filesCmd = &cobra.Command{
	Use:   "files <id>",
	Short: "List the output files of a data object",
	Long: `List the files a data object produced, relative to its data directory.
Directory outputs are listed recursively.`,
	Example: `  $ resolwe files 101
  $ resolwe files 101 --field bam
  $ resolwe files 101 --name reads.bam`,
	Args: cobra.ExactArgs(1),
	RunE: runFiles,
}

var lineageCmd = &cobra.Command{
	Use:   "lineage <id>",
	Short: "Show the parents and children of a data object",
	Args:  cobra.ExactArgs(1),
	RunE:  runLineage,
}

func init() {
	filesCmd.Flags().StringVar(&filesName, "name", "", "Only list files with this path")
	filesCmd.Flags().StringVar(&filesField, "field", "", "Only list files of this output field")
}

func runFiles(cmd *cobra.Command, args []string) error {
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

	files, err := e.runs.Files(cmd.Context(), ids[0], filesName, filesField)
	if err != nil {
		return err
	}
	if outputFormat != ui.FormatTable {
		return ui.Encode(cmd.OutOrStdout(), outputFormat, files)
	}
	for _, f := range files {
		fmt.Fprintln(cmd.OutOrStdout(), f)
	}
	return nil
}

func runLineage(cmd *cobra.Command, args []string) error {
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

	parents, err := e.runs.Parents(cmd.Context(), ids[0])
	if err != nil {
		return err
	}
	children, err := e.runs.Children(cmd.Context(), ids[0])
	if err != nil {
		return err
	}
	if outputFormat != ui.FormatTable {
		return ui.Encode(cmd.OutOrStdout(), outputFormat, map[string][]models.Data{
			"parents":  parents,
			"children": children,
		})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, ui.Bold("Parents"))
	if err := ui.DataTable(out, pointers(parents)); err != nil {
		return err
	}
	fmt.Fprintln(out, ui.Bold("Children"))
	return ui.DataTable(out, pointers(children))
}

func pointers(data []models.Data) []*models.Data {
	out := make([]*models.Data, len(data))
	for i := range data {
		out[i] = &data[i]
	}
	return out
}
