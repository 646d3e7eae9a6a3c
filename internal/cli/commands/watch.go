package commands

import (
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"resolwe-go/sdk/internal/cli/ui"
	"resolwe-go/sdk/pkg/models"
)

var watchCmd = &cobra.Command{
	Use:   "watch <id>...",
	Short: "Follow data objects until every one reaches a terminal status",
	Long: `Poll each data object concurrently and print a line whenever its status or
progress changes. Exits non-zero if any object finishes in a failed status.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}
	e, err := loadEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer e.close()

	var (
		mu     sync.Mutex
		failed []int
	)
	out := cmd.OutOrStdout()
	report := func(d *models.Data) {
		mu.Lock()
		defer mu.Unlock()
		ui.PrintDataLine(out, d)
	}

	g, ctx := errgroup.WithContext(cmd.Context())
	for _, id := range ids {
		g.Go(func() error {
			d, err := e.runs.Wait(ctx, id, report)
			if err != nil {
				return err
			}
			if d.Status.Phase() == models.PhaseFailed {
				mu.Lock()
				failed = append(failed, d.ID)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d data objects failed: %v", len(failed), len(ids), failed)
	}
	ui.PrintSuccess("all %d data objects finished", len(ids))
	return nil
}
