package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/ticketcart/internal/cart"
	"github.com/angelmondragon/ticketcart/internal/cron"
	"github.com/angelmondragon/ticketcart/pkg/config"
	"github.com/angelmondragon/ticketcart/pkg/db"
	"github.com/angelmondragon/ticketcart/pkg/env"
	"github.com/angelmondragon/ticketcart/pkg/instance"
	"github.com/angelmondragon/ticketcart/pkg/logger"
	"github.com/angelmondragon/ticketcart/pkg/metrics"
	"github.com/angelmondragon/ticketcart/pkg/migrate"
	"github.com/angelmondragon/ticketcart/pkg/redis"
)

const lockNameFormat = "cart-sweeper:%s"

// The sweeper expires cart snapshots for backends without native TTL. Redis
// storage expires keys itself, so there is nothing to sweep.
func main() {
	once := flag.Bool("once", false, "run a single sweep cycle and exit")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "sweeper"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "sweeper",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"storage":  cfg.Cart.Storage,
		"instance": instance.GetID(),
	})

	var pruner cart.Pruner
	switch cfg.Cart.Storage {
	case config.StorageSQL:
		dbClient, err := db.New(ctx, cfg.DB, logg)
		requireResource(ctx, logg, "database", err)
		defer func() {
			if err := dbClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing database", err)
			}
		}()
		requireResource(ctx, logg, "migrations", migrate.MaybeRunDev(ctx, cfg, logg, dbClient))
		pruner = cart.NewSQLStorage(dbClient.DB())
	case config.StorageFile:
		fileStorage, err := cart.NewFileStorage(cfg.Cart.FileDir)
		requireResource(ctx, logg, "cart file dir", err)
		pruner = fileStorage
	default:
		logg.Info(ctx, "cart storage expires on its own; sweeper has nothing to do")
		return
	}

	lock, closeLock := buildLock(ctx, cfg, logg)
	defer closeLock()

	registry := prometheus.NewRegistry()
	jobMetrics := metrics.NewJobMetrics(registry)

	job, err := cron.NewSnapshotRetentionJob(cron.SnapshotRetentionJobParams{
		Logger:    logg,
		Pruner:    pruner,
		Retention: cfg.Cart.TTL,
		Metrics:   jobMetrics,
	})
	requireResource(ctx, logg, "retention job", err)

	jobs := cron.NewRegistry(job)
	ctx = logg.WithField(ctx, "jobs", jobs.Names())

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: jobs,
		Lock:     lock,
		Metrics:  jobMetrics,
		Interval: cfg.Cart.SweepInterval,
	})
	requireResource(ctx, logg, "sweeper service", err)

	if *once {
		if !service.RunOnce(ctx) {
			logg.Info(ctx, "another sweeper holds the lock")
		}
		return
	}

	metricsServer := &http.Server{
		Addr:              ":" + env.Get("METRICS_PORT", "9090"),
		Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics server stopped", err)
		}
	}()

	logg.Info(ctx, "starting sweeper")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "sweeper stopped unexpectedly", err)
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logg.Error(ctx, "error stopping metrics server", err)
	}
	logg.Info(ctx, "sweeper shutting down gracefully")
}

// buildLock shares the schedule across replicas through Redis when it is
// configured; otherwise the sweeper assumes it runs alone.
func buildLock(ctx context.Context, cfg *config.Config, logg *logger.Logger) (cron.Lock, func()) {
	if !cfg.Redis.Configured() {
		return &cron.LocalLock{}, func() {}
	}
	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)

	env := cfg.App.Env
	if env == "" {
		env = "local"
	}
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(fmt.Sprintf(lockNameFormat, env)), 0)
	requireResource(ctx, logg, "sweeper lock", err)

	return lock, func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
