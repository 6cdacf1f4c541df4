package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/soundforms/atelier-backend/internal/orders"
	"github.com/soundforms/atelier-backend/internal/reconcile"
	"github.com/soundforms/atelier-backend/internal/registry"
	syncworker "github.com/soundforms/atelier-backend/internal/sync"
	"github.com/soundforms/atelier-backend/internal/upstream"
	"github.com/soundforms/atelier-backend/pkg/config"
	"github.com/soundforms/atelier-backend/pkg/db"
	"github.com/soundforms/atelier-backend/pkg/instance"
	"github.com/soundforms/atelier-backend/pkg/logger"
	"github.com/soundforms/atelier-backend/pkg/metrics"
	"github.com/soundforms/atelier-backend/pkg/migrate"
	"github.com/soundforms/atelier-backend/pkg/outbox"
	"github.com/soundforms/atelier-backend/pkg/redis"
	"github.com/soundforms/atelier-backend/pkg/square"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "sync-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "sync-worker",
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

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	squareClient, err := square.NewClient(context.Background(), cfg.Square, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap square client", err)
		os.Exit(1)
	}
	feed, err := upstream.NewSquareFeed(squareClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create upstream feed", err)
		os.Exit(1)
	}

	registryService, err := registry.NewService(registry.NewGormStore(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create registry service", err)
		os.Exit(1)
	}

	outboxRepo := outbox.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outboxRepo, logg)
	ordersRepo := orders.NewRepository(dbClient.DB())

	jobMetrics := metrics.NewSyncJobMetrics(prometheus.DefaultRegisterer)

	orderLocker, err := reconcile.NewRedisOrderLocker(redisClient, cfg.Sync.OrderLockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create order locker", err)
		os.Exit(1)
	}
	reconcileService, err := reconcile.NewService(reconcile.Deps{
		Orders:     ordersRepo,
		Registry:   registryService,
		Feed:       feed,
		Locker:     orderLocker,
		Notifier:   reconcile.NewOutboxNotifier(dbClient, outboxService, logg),
		Metrics:    jobMetrics,
		Logger:     logg,
		BatchSize:  cfg.Sync.BatchSize,
		BatchPause: cfg.Sync.BatchPause,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reconcile service", err)
		os.Exit(1)
	}

	checkpoint, err := syncworker.NewCheckpoint(redisClient, "order-sync", 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create sync checkpoint", err)
		os.Exit(1)
	}
	orderSyncJob, err := syncworker.NewOrderSyncJob(syncworker.OrderSyncJobParams{
		Logger:     logg,
		Feed:       feed,
		Reconciler: reconcileService,
		Checkpoint: checkpoint,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order sync job", err)
		os.Exit(1)
	}
	trackingJob, err := syncworker.NewTrackingRefreshJob(syncworker.TrackingRefreshJobParams{
		Logger: logg,
		Repo:   ordersRepo,
		Feed:   feed,
		DB:     dbClient,
		Outbox: outboxService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create tracking refresh job", err)
		os.Exit(1)
	}
	retentionJob, err := syncworker.NewOutboxRetentionJob(syncworker.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outboxRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	lock, err := syncworker.NewRedisLock(redisClient, redisClient.LockKey("sync", "worker"), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create worker lock", err)
		os.Exit(1)
	}

	service, err := syncworker.NewService(syncworker.ServiceParams{
		Logger:   logg,
		Registry: syncworker.NewRegistry(orderSyncJob, trackingJob, retentionJob),
		Lock:     lock,
		Metrics:  jobMetrics,
		Interval: cfg.Sync.WorkerInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sync service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting sync worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "sync worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "sync worker shutting down gracefully")
}
