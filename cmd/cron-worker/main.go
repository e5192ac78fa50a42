package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/stocklinehq/stockline-backend/internal/catalog"
	"github.com/stocklinehq/stockline-backend/internal/collector"
	"github.com/stocklinehq/stockline-backend/internal/cron"
	"github.com/stocklinehq/stockline-backend/internal/discovery"
	"github.com/stocklinehq/stockline-backend/internal/snapshots"
	"github.com/stocklinehq/stockline-backend/pkg/config"
	"github.com/stocklinehq/stockline-backend/pkg/db"
	"github.com/stocklinehq/stockline-backend/pkg/logger"
	"github.com/stocklinehq/stockline-backend/pkg/metrics"
	"github.com/stocklinehq/stockline-backend/pkg/migrate"
	"github.com/stocklinehq/stockline-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	refreshJob, err := cron.NewSeasonRefreshJob(cron.SeasonRefreshJobParams{
		Logger:    logg,
		Seasons:   snapshotRepo,
		Snapshots: snapshotService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create season refresh job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName(cfg.App.Env)), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(refreshJob),
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return "cron-worker:" + env
}
