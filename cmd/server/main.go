package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/tigerops/salesops/internal/config"
	"github.com/tigerops/salesops/internal/core"
	"github.com/tigerops/salesops/internal/logging"
	"github.com/tigerops/salesops/internal/store"
	"github.com/tigerops/salesops/internal/web"
	"github.com/tigerops/salesops/internal/web/middleware"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_driver", cfg.Database.Driver,
		"import_max_sessions", cfg.Import.MaxSessions,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx := context.Background()

	dataStore, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	// Create service with config
	service := core.NewService(dataStore, cfg.Import.MaxSessions, cfg.Import.SessionTTL)

	resolver := middleware.NewStaticResolver(cfg.Security.Tokens)

	// Create server with config
	server := web.NewServer(service, cfg, resolver)

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())

	// Collect expired wizard sessions in the background
	go service.StartSessionSweeper(jobCtx, cfg.Import.SweepInterval)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		// Stop background jobs
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for open wizard sessions to close (with timeout)
		if open := service.OpenSessions(); open > 0 {
			slog.Info("waiting for import sessions to close", "open", open)
			if err := service.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("sessions did not close in time", "error", err)
			} else {
				slog.Info("all import sessions closed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	// Start server (uses addr from config internally)
	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}

// openStore builds the configured store implementation. The returned
// cleanup func closes any underlying pool.
func openStore(ctx context.Context, cfg *config.Config) (core.Store, func(), error) {
	if cfg.Database.Driver == "memory" {
		slog.Warn("using in-memory store; data will not survive restarts")
		return store.NewMemory(), func() {}, nil
	}

	// Parse and configure connection pool
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, err
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	// Log which database we connected to
	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	return store.NewPG(pool), pool.Close, nil
}
