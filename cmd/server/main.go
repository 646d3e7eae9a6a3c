package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"resolwe-go/sdk/internal/api"
	"resolwe-go/sdk/internal/auth"
	"resolwe-go/sdk/internal/config"
	"resolwe-go/sdk/internal/logging"
	"resolwe-go/sdk/internal/mcp"
	"resolwe-go/sdk/internal/observability"
	"resolwe-go/sdk/internal/repository"
	"resolwe-go/sdk/internal/services"
	"resolwe-go/sdk/internal/tls"
	"resolwe-go/sdk/pkg/resolwe"
)

const serviceName = "resolwe-gateway"

var version = "dev"

func main() {
	ctx := context.Background()

	// Parse command line flags
	configFile := flag.String("config", "", "Path to config.yaml")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Configuration loading failed: %v", err)
	}

	logger := logging.NewLogger(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Configuration loaded",
		"server", cfg.Server.URL,
		"auth_mode", cfg.Auth.Mode,
		"gateway_issuer", cfg.Gateway.Issuer,
		"journal", cfg.DB.Enable,
	)

	shutdownTracing, err := observability.InitTracing(ctx, serviceName, version, observability.Settings{
		Exporter: cfg.Telemetry.Exporter,
		Endpoint: cfg.Telemetry.Endpoint,
		Insecure: cfg.Telemetry.Insecure,
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Error("tracing shutdown error", "error", err)
		}
	}()

	// Upstream client
	httpClient, err := auth.NewHTTPClient(ctx, cfg)
	if err != nil {
		logger.Error("failed to build upstream credentials", "error", err)
		os.Exit(1)
	}
	client, err := resolwe.NewClient(cfg.Server.URL,
		resolwe.WithHTTPClient(httpClient),
		resolwe.WithLogger(logger.With("component", "resolwe")),
		resolwe.WithUserAgent(cfg.Server.UserAgent),
	)
	if err != nil {
		logger.Error("invalid server url", "error", err)
		os.Exit(1)
	}

	// Snapshot journal
	checks := map[string]api.Pinger{}
	var journal repository.SnapshotStore
	if cfg.DB.Enable {
		dbPool, err := initDatabase(ctx, cfg, logger)
		if err != nil {
			logger.Error("Database initialization failed", "error", err)
			os.Exit(1)
		}
		defer dbPool.Close()

		store := repository.NewPostgresSnapshotStore(dbPool)
		if err := store.Migrate(ctx); err != nil {
			logger.Error("failed to migrate snapshot journal", "error", err)
			os.Exit(1)
		}
		journal = store
		checks["database"] = store
		logger.Info("Database connected")
	} else {
		journal = repository.NewMemorySnapshotStore()
	}

	// Service layer
	tracker := resolwe.NewTracker(client)
	watcher := services.NewWatcher(tracker,
		services.WithIntervals(cfg.Poll.Interval, cfg.Poll.MaxInterval),
		services.WithTimeout(cfg.Poll.Timeout),
		services.WithWatcherLogger(logger.With("component", "watcher")),
	)
	runs := services.NewRunService(client.Processes, resolwe.NewInvoker(client), tracker, watcher, journal, logger)

	logger.Info("Service layer initialized")

	// Create Echo server
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware(serviceName))

	issuer := ""
	if cfg.Gateway.RequireAuth {
		issuer = cfg.Gateway.Issuer
	}
	authz, err := auth.New(ctx, issuer, cfg.Gateway.Audience, logger.With("component", "auth"))
	if err != nil {
		logger.Error("failed to initialize auth", "error", err)
		os.Exit(1)
	}

	e.GET("/health", api.NewHandler(version, checks).HandleHealth)

	// Mount REST API handlers under /api/v1 behind bearer auth
	apiGroup := e.Group("/api/v1")
	apiGroup.Use(echo.WrapMiddleware(authz.RequireBearer))
	api.RegisterHandlers(apiGroup, api.NewServer(runs),
		echo.WrapMiddleware(auth.RequireScope(auth.ScopeResolweRead)),
		echo.WrapMiddleware(auth.RequireScope(auth.ScopeResolweWrite)),
	)

	logger.Info("REST API handlers mounted")

	// Mount MCP protocol handlers
	mcpServer := mcp.NewServer(runs, version)
	mcpHandlers := http.NewServeMux()
	mcp.MountHTTPHandlers(mcpHandlers, mcpServer.GetMCPServer())
	mcpRoute := echo.WrapHandler(authz.RequireBearer(mcpHandlers))
	e.Any("/mcp", mcpRoute)
	e.Any("/mcp/*", mcpRoute)

	logger.Info("MCP protocol handlers mounted")

	if cfg.TLS.Enable {
		created, err := tls.EnsureSelfSignedCert(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.Hostnames)
		if err != nil {
			logger.Error("TLS setup failed", "error", err)
			os.Exit(1)
		}
		if created {
			logger.Info("generated self-signed certificate", "cert", cfg.TLS.CertFile)
		}
	}

	// wait_for_data holds the response open while polling.
	writeTimeout := time.Duration(0)
	if cfg.Poll.Timeout > 0 {
		writeTimeout = cfg.Poll.Timeout + 30*time.Second
	}
	server := &http.Server{
		Addr:         cfg.Gateway.Listen,
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown handling
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "address", server.Addr, "tls", cfg.TLS.Enable)
		if cfg.TLS.Enable {
			serverErrors <- server.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
			return
		}
		serverErrors <- server.ListenAndServe()
	}()

	// Wait for shutdown signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			os.Exit(1)
		}
	case sig := <-shutdown:
		logger.Info("Shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
			if err := server.Close(); err != nil {
				logger.Error("Server close error", "error", err)
			}
		}

		logger.Info("Server stopped gracefully")
	}
}

func initDatabase(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*pgxpool.Pool, error) {
	logger.Debug("Initializing database connection", "host", cfg.DB.Host, "name", cfg.DB.Name)

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
