package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/ticketcart/api/controllers"
	"github.com/angelmondragon/ticketcart/api/routes"
	"github.com/angelmondragon/ticketcart/internal/cart"
	"github.com/angelmondragon/ticketcart/internal/checkout"
	"github.com/angelmondragon/ticketcart/pkg/backend"
	"github.com/angelmondragon/ticketcart/pkg/config"
	"github.com/angelmondragon/ticketcart/pkg/db"
	"github.com/angelmondragon/ticketcart/pkg/env"
	"github.com/angelmondragon/ticketcart/pkg/instance"
	"github.com/angelmondragon/ticketcart/pkg/logger"
	"github.com/angelmondragon/ticketcart/pkg/metrics"
	"github.com/angelmondragon/ticketcart/pkg/migrate"
	"github.com/angelmondragon/ticketcart/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

type closer interface {
	Close() error
}

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

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	cartMetrics := metrics.NewCartMetrics(registry)

	res, err := bootstrap(context.Background(), cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap cart storage", err)
		os.Exit(1)
	}

	backendClient := backend.NewClient(cfg.Backend, backend.WithMetrics(cartMetrics))
	checkoutService, err := checkout.NewService(checkout.Config{
		AdminFee:    cfg.Checkout.AdminFee,
		PaymentPath: cfg.Checkout.PaymentPath,
	}, checkout.BackendPromoValidator(backendClient), backendClient, logg, cartMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	opener := cart.NewOpener(res.storage, cfg.Cart.StorageKey,
		cart.WithTaxRate(cfg.Cart.TaxRate()),
		cart.WithPromoValidator(checkoutService.PromoValidator()),
		cart.WithLogger(logg),
		cart.WithMetrics(cartMetrics),
	)

	addr := ":" + env.Get("PORT", cfg.App.Port)
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"storage":  cfg.Cart.Storage,
		"instance": instance.GetID(),
	})

	deps := routes.Deps{
		Opener:    opener,
		Checkout:  checkoutService,
		Gatherer:  registry,
		Readiness: res.readiness,
	}
	// A nil *redis.Client must not become a non-nil interface.
	if res.redis != nil {
		deps.Idempotency = res.redis
		deps.RateLimiter = res.redis
	} else {
		logg.Warn(ctx, "redis not configured; idempotency keys and promo rate limits are off")
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	exitCode := 0
	select {
	case err := <-errCh:
		if err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			exitCode = 1
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	shutdownErr := multierr.Append(server.Shutdown(shutdownCtx), res.closeAll())
	if shutdownErr != nil {
		logg.Error(ctx, "error during shutdown", shutdownErr)
		exitCode = 1
	}

	logg.Info(ctx, "api server stopped")
	os.Exit(exitCode)
}

// resources are the backing services the api opens at startup, with their
// readiness probes and what to close on shutdown.
type resources struct {
	storage   cart.Storage
	redis     *redis.Client
	readiness map[string]controllers.Pinger
	closers   []closer
}

func (r *resources) closeAll() error {
	var err error
	for _, c := range r.closers {
		err = multierr.Append(err, c.Close())
	}
	return err
}

// bootstrap builds the configured cart backend. Redis is opened whenever it is
// configured since checkout idempotency records live there too.
func bootstrap(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*resources, error) {
	res := &resources{readiness: map[string]controllers.Pinger{}}

	if cfg.Redis.Configured() {
		client, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return nil, err
		}
		res.redis = client
		res.readiness["redis"] = client
		res.closers = append(res.closers, client)
	}

	switch cfg.Cart.Storage {
	case config.StorageFile:
		storage, err := cart.NewFileStorage(cfg.Cart.FileDir)
		if err != nil {
			return nil, multierr.Append(err, res.closeAll())
		}
		res.storage = storage

	case config.StorageRedis:
		res.storage = cart.NewRedisStorage(res.redis, cfg.Cart.TTL)

	case config.StorageSQL:
		dbClient, err := db.New(ctx, cfg.DB, logg)
		if err != nil {
			return nil, multierr.Append(err, res.closeAll())
		}
		res.closers = append(res.closers, dbClient)
		if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
			return nil, multierr.Append(err, res.closeAll())
		}
		res.readiness["db"] = dbClient
		res.storage = cart.NewSQLStorage(dbClient.DB())

	default:
		res.storage = cart.NewMemoryStorage()
	}
	return res, nil
}
