package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/felixgeelhaar/nourish/internal/app"
	"github.com/felixgeelhaar/nourish/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/nourish/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/nourish/pkg/config"
	"github.com/felixgeelhaar/nourish/pkg/observability"
)

// sharedCacheQueue is the durable queue used when snapshots live in Redis.
const sharedCacheQueue = "nourish.subscription-cache"

func main() {
	// Setup logger
	logger := observability.LoggerFromEnv()
	logger.Info("starting nourish worker")

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logConfig := observability.ProductionLogConfig()
	if cfg.IsDevelopment() {
		logConfig = observability.DefaultLogConfig()
	}
	logConfig.Level = observability.LevelFromString(cfg.LogLevel)
	logConfig.ServiceName = "nourish-worker"
	logger = observability.NewLogger(logConfig)

	if cfg.LocalMode {
		logger.Error("worker requires PostgreSQL and RabbitMQ; local mode invalidates caches in-process")
		os.Exit(1)
	}

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize container", "error", err)
		os.Exit(1)
	}
	defer container.Close()

	queue := ""
	if cfg.UsesRedisCache() {
		queue = sharedCacheQueue
	}
	registry := eventbus.NewConsumerRegistry(logger)
	consumer, err := eventbus.NewRabbitMQConsumer(eventbus.RabbitMQConsumerConfig{
		URL:       cfg.RabbitMQURL,
		QueueName: queue,
		Logger:    logger,
	}, registry)
	if err != nil {
		logger.Error("failed to connect consumer to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	consumer.RegisterConsumer(container.CacheInvalidation)
	container.Health.Register("rabbitmq_consumer", observability.RabbitMQHealthChecker(consumer.Ping))

	if err := container.OutboxProcessor.Start(ctx); err != nil {
		logger.Error("failed to start outbox processor", "error", err)
		os.Exit(1)
	}
	defer container.OutboxProcessor.Stop()
	container.Health.Register("outbox", container.OutboxProcessor.HealthCheck())
	go cleanupOutbox(ctx, container.OutboxRepo, cfg.OutboxRetentionDays, logger)

	if cfg.WorkerHealthAddr != "" {
		startHealthServer(ctx, cfg.WorkerHealthAddr, container.Health, logger)
	}

	logger.Info("consuming subscription changes", "event_types", registry.EventTypes())
	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("consumer stopped", "error", err)
		os.Exit(1)
	}

	logger.Info("worker stopped")
}

// cleanupOutbox deletes published outbox messages past retention once an hour.
func cleanupOutbox(ctx context.Context, repo outbox.Repository, retentionDays int, logger *slog.Logger) {
	if retentionDays <= 0 {
		return
	}
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := repo.DeleteOld(ctx, retentionDays)
			if err != nil {
				logger.Warn("outbox cleanup failed", "error", err)
				continue
			}
			if deleted > 0 {
				logger.Info("outbox cleanup", "deleted", deleted)
			}
		}
	}
}

func startHealthServer(ctx context.Context, addr string, health *observability.HealthRegistry, logger *slog.Logger) {
	healthSrv := &http.Server{
		Addr:              addr,
		Handler:           app.HealthMux(health),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("health server starting", "addr", addr)
		if err := healthSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("health server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := healthSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("health server shutdown error", "error", err)
		}
	}()
}
