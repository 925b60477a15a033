package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sorters-club/sorters/internal/core/config"
	"github.com/sorters-club/sorters/internal/core/digest"
	"github.com/sorters-club/sorters/internal/core/storage"
	"github.com/sorters-club/sorters/internal/core/storage/memory"
	"github.com/sorters-club/sorters/internal/core/storage/mongodb"
	"github.com/sorters-club/sorters/internal/core/storage/postgres"
	"github.com/sorters-club/sorters/internal/feed"
	"github.com/sorters-club/sorters/internal/ingestion"
	"github.com/sorters-club/sorters/internal/metrics"
	"github.com/sorters-club/sorters/internal/migrations"
	"github.com/sorters-club/sorters/internal/server"
)

func main() {
	configPath := flag.String("config", "sorters.yaml", "Path to configuration file")
	flag.Parse()

	// 0. Initialize Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 1. Load Configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded config",
		"database_type", cfg.Database.Type,
		"global_limit", cfg.Feed.GlobalLimit,
		"timezone", cfg.Feed.Timezone)

	// 2. Initialize Storage
	store, closer, err := openStore(cfg.Database)
	if err != nil {
		slog.Error("Failed to initialize event store", "type", cfg.Database.Type, "error", err)
		os.Exit(1)
	}
	defer closer.Close()

	// 3. Program catalog and feed timezone
	programs := digest.DefaultCatalog()
	if cfg.Feed.ProgramsPath != "" {
		programs, err = digest.LoadCatalog(cfg.Feed.ProgramsPath)
		if err != nil {
			slog.Error("Failed to load program catalog", "path", cfg.Feed.ProgramsPath, "error", err)
			os.Exit(1)
		}
		slog.Info("Loaded program catalog", "path", cfg.Feed.ProgramsPath, "programs", programs.Len())
	}

	loc, err := cfg.Feed.Location()
	if err != nil {
		slog.Error("Invalid feed timezone", "error", err)
		os.Exit(1)
	}

	// 4. Initialize Feeds (digest + render, cached)
	m := metrics.New(prometheus.DefaultRegisterer)

	feedSvc, err := feed.NewService(store, m, feed.Options{
		GlobalLimit:  cfg.Feed.GlobalLimit,
		UserLimit:    cfg.Feed.UserLimit,
		DisplayLimit: cfg.Feed.DisplayLimit,
		Location:     loc,
		Programs:     programs,
		CacheTTL:     cfg.Feed.EffectiveCacheTTL(),
	})
	if err != nil {
		slog.Error("Failed to initialize feeds", "error", err)
		os.Exit(1)
	}

	// 5. Initialize Ingestion
	ingestionSvc := ingestion.NewService(store, m, feedSvc, cfg.Server.MaxBodySizeMB)

	// 6. Initialize Server
	srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), store, prometheus.DefaultGatherer, cfg.Server.Mode)
	ingestionSvc.RegisterRoutes(srv.Engine)
	feedSvc.RegisterRoutes(srv.Engine)

	// 7. Start Services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	// HTTP server blocks until ctx is cancelled.
	if err := srv.Run(ctx); err != nil {
		slog.Error("Server stopped with error", "error", err)
	}

	slog.Info("Shutdown complete")
}

// openStore builds the configured event store. For postgres it also applies migrations.
func openStore(cfg config.DatabaseConfig) (storage.EventStore, io.Closer, error) {
	switch cfg.Type {
	case config.DatabasePostgres:
		db, err := postgres.Open(cfg.DSN, cfg.MaxOpenConns, cfg.MaxIdleConns)
		if err != nil {
			return nil, nil, err
		}
		if err := migrations.RunMigrations(db, cfg.AutoMigrate); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to run database migrations: %w", err)
		}
		adapter, err := postgres.NewAdapter(db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return adapter, adapter, nil

	case config.DatabaseMongoDB:
		adapter, err := mongodb.NewAdapter(cfg.DSN, uint64(cfg.MaxOpenConns))
		if err != nil {
			return nil, nil, err
		}
		return adapter, adapter, nil

	case config.DatabaseMemory:
		slog.Warn("Using in-memory event store; events are lost on restart")
		return memory.NewStore(), io.NopCloser(nil), nil
	}
	return nil, nil, fmt.Errorf("unsupported database type %q", cfg.Type)
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
