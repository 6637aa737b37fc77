package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"bidmarket/db"
	"bidmarket/db/migrations"
	"bidmarket/internal/bidding"
	"bidmarket/internal/config"
	"bidmarket/internal/events"
	"bidmarket/internal/handlers"
	"bidmarket/internal/logger"
	"bidmarket/internal/ratelimit"
	"bidmarket/internal/telemetry"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	if err != nil {
		logrus.Fatalf("Cannot create logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}

// подменяется в тестах
var setupTracing = telemetry.Setup

func run(ctx context.Context, cfg config.Config, log *logrus.Logger) (err error) {
	shutdownTracing, err := setupTracing(ctx, "bidmarket", cfg.OTelEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		err = multierr.Append(err, shutdownTracing(shutdownCtx))
	}()

	dbConn, err := db.Open(ctx, cfg.StoreDriver, cfg.StoreDSN())
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbConn.Close())
	}()

	if err := migrations.Run(dbConn.DB, cfg.StoreDriver, log); err != nil {
		return err
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.RabbitMQURL != "" {
		rmq, err := events.NewRabbitMQ(cfg.RabbitMQURL, cfg.RabbitMQQueue)
		if err != nil {
			return err
		}
		publisher = rmq
		log.WithField("queue", cfg.RabbitMQQueue).Info("Publishing bid events to RabbitMQ")
	}
	defer func() {
		err = multierr.Append(err, publisher.Close())
	}()

	store := db.NewStorage(dbConn)
	coordinator := bidding.NewCoordinator(store, bidding.Config{
		StoreTimeout: cfg.StoreTimeout,
		MaxRetries:   cfg.StatusMaxRetries,
		RetryDelay:   cfg.StatusRetryDelay,
	}, bidding.WithPublisher(publisher), bidding.WithLogger(log))

	var limiter *ratelimit.KeyLimiter
	var limit func(http.Handler) http.Handler
	if cfg.RateLimitRPS > 0 {
		limiter = ratelimit.New(cfg.RateLimitRPS, cfg.RateLimitBurst)
		limit = limiter.Middleware
	}

	h := handlers.NewHandler(coordinator, log)
	srv := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           handlers.NewRouter(h, log, limit),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	if limiter != nil {
		g.Go(func() error {
			limiter.Run(gctx, cfg.RateLimitIdleTTL)
			return nil
		})
	}
	g.Go(func() error {
		log.Infof("Starting server on %s", cfg.ServerAddress)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		log.Info("Shutting down server")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
