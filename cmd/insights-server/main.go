package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"smartexpense/internal/analytics"
	"smartexpense/internal/backend"
	"smartexpense/internal/cache"
	"smartexpense/internal/cli"
	apphttp "smartexpense/internal/http"
	"smartexpense/internal/log"
	"smartexpense/internal/worker"
)

func main() {
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg, os.Stdout)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err.Error())
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err.Error(), log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}

	engine := analytics.NewEngine(res.Store, logger)
	cached := analytics.NewCachedEngine(engine, cfg.CacheSize, cfg.CacheTTL)
	caches := cache.NewManager(logger)
	cached.Register(caches)
	caches.StartCleanup(time.Minute)

	srv := apphttp.NewServer(":"+cfg.Port, cached, res.Store, apphttp.Options{
		RequestTimeout:     cfg.RequestTimeout,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
		Ready:              res.Pinger,
	})

	broker, err := cli.ConnectAMQP(cfg, logger)
	if err != nil {
		// Stale cache entries still expire by TTL without the broker.
		logger.Warn("Record-changed events disabled", log.FieldError, err.Error())
	}

	var invalidator *worker.InvalidationWorker
	if broker != nil {
		invalidator = worker.NewInvalidationWorker(broker, cached, logger)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
		if invalidator != nil {
			if err := invalidator.Stop(ctx); err != nil {
				logger.Warn("Invalidation worker stop error", log.FieldError, err.Error())
			}
		}
		if broker != nil {
			if err := broker.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err.Error())
			}
		}
		caches.Stop()
		if err := res.Close(); err != nil {
			logger.Warn("Backend close error", log.FieldError, err.Error())
		}
	})

	if invalidator != nil {
		if err := invalidator.Start(ctx); err != nil {
			logger.Error("Failed to start invalidation worker", log.FieldError, err.Error())
		}
	}

	logger.Info("Starting insights server",
		log.FieldOperation, log.OpStartup, "port", cfg.Port, log.FieldBackend, cfg.DataBackend, "amqp", broker != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
