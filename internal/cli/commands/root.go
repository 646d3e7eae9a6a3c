// Package commands implements the resolwe command-line tool.
package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"resolwe-go/sdk/internal/cli/ui"
)

const version = "0.1.0"

var (
	configPath   string
	serverURL    string
	outputFormat string
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:     "resolwe",
	Short:   "Resolwe platform CLI",
	Version: version,
	Long: `A command-line client for a Resolwe bioinformatics platform.
Discover processes, validate inputs, start runs and follow their status.`,
	Example: `  # List alignment processes
  $ resolwe processes --category analyses:alignment

  # Show the inputs a process accepts
  $ resolwe schema alignment-bwa-mem

  # Start a run and wait for it to finish
  $ resolwe run alignment-bwa-mem -f inputs.yaml --wait

  # Follow several runs at once
  $ resolwe watch 101 102 103`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// ExecuteContext runs the root command. ctx cancels in-flight requests and
// waits.
func ExecuteContext(ctx context.Context) error {
	rootCmd.SetVersionTemplate(fmt.Sprintf("resolwe version %s\n", version))
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "Path to config.yaml (default ./config.yaml)")
	flags.StringVarP(&serverURL, "server", "s", "", "Platform URL, overrides server.url")
	flags.StringVarP(&outputFormat, "output", "o", ui.FormatTable, "Output format: table, json or yaml")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Log requests to stderr")

	rootCmd.AddCommand(processesCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(lineageCmd)
}
