package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"resolwe-go/sdk/internal/cli/commands"
	"resolwe-go/sdk/internal/cli/ui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := commands.ExecuteContext(ctx); err != nil {
		ui.PrintError("%s", err)
		os.Exit(1)
	}
}
