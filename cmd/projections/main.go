package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/storefront-labs/catalog-projections/internal/api"
	"github.com/storefront-labs/catalog-projections/internal/config"
	"github.com/storefront-labs/catalog-projections/internal/core/storage/postgres"
	"github.com/storefront-labs/catalog-projections/internal/expiry"
	"github.com/storefront-labs/catalog-projections/internal/migrations"
	"github.com/storefront-labs/catalog-projections/internal/notification"
	"github.com/storefront-labs/catalog-projections/internal/server"
	"github.com/storefront-labs/catalog-projections/internal/store"
)

func main() {
	configPath := flag.String("config", "projections.yaml", "Path to configuration file")
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
	slog.Info("Loaded config", "config", cfg)

	checkInterval, err := time.ParseDuration(cfg.Expiry.CheckInterval)
	if err != nil {
		slog.Error("Invalid expiry check interval", "value", cfg.Expiry.CheckInterval, "error", err)
		os.Exit(1)
	}

	// 2. Initialize Storage (PostgreSQL)
	dbAdapter, err := postgres.NewAdapter(
		cfg.Database.DSN,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
	)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer dbAdapter.Close()

	// 2.1. Run Database Migrations
	if err := migrations.RunMigrations(dbAdapter.DB(), cfg.Database.AutoMigrate); err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}

	historyJournal := postgres.NewHistoryAdapter(dbAdapter.DB())

	// 3. Initialize Notifications
	resolver := notification.DefaultResolver()
	if cfg.Notification.KindsPath != "" {
		resolver, err = notification.LoadResolver(cfg.Notification.KindsPath)
		if err != nil {
			slog.Error("Failed to load notification kinds", "path", cfg.Notification.KindsPath, "error", err)
			os.Exit(1)
		}
	}

	var publisher notification.Publisher = notification.LogPublisher{}
	var bus server.Pinger
	if cfg.Notification.Enabled {
		redisPublisher := notification.NewRedisPublisher(notification.NewRedis(
			cfg.Notification.RedisAddr,
			cfg.Notification.RedisPassword,
			cfg.Notification.RedisDB,
		))
		publisher = redisPublisher
		bus = redisPublisher
	} else {
		slog.Info("Notification bus disabled by config, publishing to log only")
	}

	notifier := notification.NewNotifier(resolver, publisher)

	// 4. Initialize the Projection Store
	projectionStore := store.New(dbAdapter, historyJournal, notifier, store.Options{
		DefaultModifiedSinceOffset: time.Duration(cfg.Reader.DefaultModifiedSinceOffsetMinutes) * time.Minute,
	})

	// 5. Initialize the Expiry Sweeper
	sweeper := expiry.NewSweeper(dbAdapter, projectionStore, checkInterval)

	// 6. Initialize Server
	srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), dbAdapter.DB(), bus, cfg.Server.Mode)
	apiHandler := api.NewHandler(projectionStore, cfg.Reader.DefaultLimit, cfg.Reader.MaxLimit)
	apiHandler.RegisterRoutes(srv.Engine)

	// 7. Start Services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Signal handler triggers the shutdown sequence below.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	group, groupCtx := errgroup.WithContext(ctx)

	if cfg.Expiry.Enabled {
		group.Go(func() error {
			return sweeper.Start(groupCtx)
		})
	} else {
		slog.Info("Expiry sweeper disabled by config")
	}

	// HTTP server blocks until ctx is cancelled.
	group.Go(func() error {
		return srv.Run(groupCtx)
	})

	if err := group.Wait(); err != nil {
		slog.Error("Service stopped with error", "error", err)
	}

	slog.Info("Shutdown complete")
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
