package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/stocklinehq/stockline-backend/api/routes"
	"github.com/stocklinehq/stockline-backend/internal/catalog"
	"github.com/stocklinehq/stockline-backend/internal/collector"
	"github.com/stocklinehq/stockline-backend/internal/discovery"
	"github.com/stocklinehq/stockline-backend/internal/reports"
	"github.com/stocklinehq/stockline-backend/internal/sales"
	"github.com/stocklinehq/stockline-backend/internal/snapshots"
	"github.com/stocklinehq/stockline-backend/internal/stockledger"
	"github.com/stocklinehq/stockline-backend/pkg/config"
	"github.com/stocklinehq/stockline-backend/pkg/db"
	"github.com/stocklinehq/stockline-backend/pkg/logger"
	"github.com/stocklinehq/stockline-backend/pkg/migrate"
	"github.com/stocklinehq/stockline-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	catalogClient, err := catalog.NewClient(context.Background(), cfg.Catalog, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog client", err)
		os.Exit(1)
	}

	discoveryService, err := discovery.NewService(catalogClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create discovery service", err)
		os.Exit(1)
	}

	collectorService, err := collector.NewService(collector.ServiceParams{
		Client:    catalogClient,
		BatchSize: cfg.Snapshot.LevelBatchSize,
		Pause:     cfg.Snapshot.LevelBatchPause,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create collector service", err)
		os.Exit(1)
	}

	snapshotRepo := snapshots.NewRepository(dbClient.DB())
	ledgerRepo := stockledger.NewRepository(dbClient.DB())
	salesRepo := sales.NewRepository(dbClient.DB())

	snapshotService, err := snapshots.NewService(snapshots.ServiceParams{
		Repo:      snapshotRepo,
		Discovery: discoveryService,
		Collector: collectorService,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create snapshot service", err)
		os.Exit(1)
	}

	reportService, err := reports.NewService(reports.ServiceParams{
		Snapshots: snapshotRepo,
		Ledger:    ledgerRepo,
		Sales:     salesRepo,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create report service", err)
		os.Exit(1)
	}

	salesService, err := sales.NewService(salesRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create sales service", err)
		os.Exit(1)
	}

	ledgerService, err := stockledger.NewService(ledgerRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			snapshotService,
			reportService,
			salesService,
			ledgerService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
