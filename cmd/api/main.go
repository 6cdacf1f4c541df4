package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/soundforms/atelier-backend/api/controllers"
	"github.com/soundforms/atelier-backend/api/routes"
	"github.com/soundforms/atelier-backend/internal/orders"
	"github.com/soundforms/atelier-backend/internal/reconcile"
	"github.com/soundforms/atelier-backend/internal/registry"
	"github.com/soundforms/atelier-backend/internal/upstream"
	"github.com/soundforms/atelier-backend/internal/worksheet"
	"github.com/soundforms/atelier-backend/pkg/config"
	"github.com/soundforms/atelier-backend/pkg/db"
	"github.com/soundforms/atelier-backend/pkg/logger"
	"github.com/soundforms/atelier-backend/pkg/migrate"
	"github.com/soundforms/atelier-backend/pkg/outbox"
	"github.com/soundforms/atelier-backend/pkg/redis"
	"github.com/soundforms/atelier-backend/pkg/square"
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

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	ordersRepo := orders.NewRepository(dbClient.DB())
	ordersService, err := orders.NewService(ordersRepo, dbClient, outboxService, registryService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

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
		Logger:     logg,
		BatchSize:  cfg.Sync.BatchSize,
		BatchPause: cfg.Sync.BatchPause,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reconcile service", err)
		os.Exit(1)
	}

	normalizer, err := worksheet.NewNormalizer(registryService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create worksheet normalizer", err)
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
		Handler: routes.NewRouter(routes.Deps{
			Config: cfg,
			Logger: logg,
			Redis:  redisClient,
			HealthDeps: map[string]controllers.Pinger{
				"database": dbClient,
				"redis":    redisClient,
			},
			Orders:    ordersService,
			Reconcile: reconcileService,
			Registry:  registryService,
			Worksheet: normalizer,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
