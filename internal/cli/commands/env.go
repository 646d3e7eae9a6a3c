package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"

	"resolwe-go/sdk/internal/auth"
	"resolwe-go/sdk/internal/cli/ui"
	"resolwe-go/sdk/internal/config"
	"resolwe-go/sdk/internal/logging"
	"resolwe-go/sdk/internal/repository"
	"resolwe-go/sdk/internal/services"
	"resolwe-go/sdk/pkg/resolwe"
)

// env is the wiring shared by every command.
type env struct {
	cfg    *config.Config
	client *resolwe.Client
	runs   *services.RunService
	close  func()
}

// stderr is where logs go; tests swap it.
var stderr io.Writer = os.Stderr

func loadEnv(ctx context.Context) (*env, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if serverURL != "" {
		cfg.Server.URL = serverURL
	}

	level := "error"
	if verbose {
		level = "debug"
	}
	logger := logging.New(stderr, level, cfg.Log.Format)

	httpClient, err := auth.NewHTTPClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	client, err := resolwe.NewClient(cfg.Server.URL,
		resolwe.WithHTTPClient(httpClient),
		resolwe.WithLogger(logger),
		resolwe.WithUserAgent(cfg.Server.UserAgent),
	)
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg, client: client, close: func() {}}
	var journal repository.SnapshotStore
	if cfg.DB.Enable {
		pool, err := pgxpool.New(ctx, cfg.DSN())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to snapshot journal: %w", err)
		}
		store := repository.NewPostgresSnapshotStore(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		journal = store
		e.close = pool.Close
	}

	tracker := resolwe.NewTracker(client)
	watcher := services.NewWatcher(tracker,
		services.WithIntervals(cfg.Poll.Interval, cfg.Poll.MaxInterval),
		services.WithTimeout(cfg.Poll.Timeout),
		services.WithWatcherLogger(logger),
	)
	e.runs = services.NewRunService(client.Processes, resolwe.NewInvoker(client), tracker, watcher, journal, logger)
	return e, nil
}

func parseIDs(args []string) ([]int, error) {
	ids := make([]int, 0, len(args))
	for _, a := range args {
		id, err := strconv.Atoi(a)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid data id %q", a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func checkFormat() error {
	switch outputFormat {
	case ui.FormatTable, ui.FormatJSON, ui.FormatYAML:
		return nil
	}
	return fmt.Errorf("unsupported output format %q", outputFormat)
}
