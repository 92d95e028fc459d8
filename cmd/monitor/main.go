package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	rediscache "github.com/streamop/switchwatch/internal/cache"
	"github.com/streamop/switchwatch/internal/config"
	"github.com/streamop/switchwatch/internal/database"
	"github.com/streamop/switchwatch/internal/logging"
	"github.com/streamop/switchwatch/internal/metrics"
	"github.com/streamop/switchwatch/internal/monitor"
	"github.com/streamop/switchwatch/internal/notifier"
	"github.com/streamop/switchwatch/internal/queue"
	"github.com/streamop/switchwatch/internal/tracing"
)

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	// Initialize tracing
	tracerCloser, err := tracing.Init(cfg.Tracing)
	if err != nil {
		logger.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer tracerCloser.Close()

	// Initialize database
	db, err := database.New(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	repo := database.NewRepository(db)

	// Initialize cache
	cache, err := rediscache.NewCache(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer cache.Close()

	// Initialize queue
	q, err := queue.New(cfg.Queue)
	if err != nil {
		logger.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()

	// Initialize webhook notifier
	notify := notifier.NewService(repo, logger)

	// Start metrics server
	metricsServer := metrics.NewServer(cfg.Monitor.MetricsPort, logger)
	go func() {
		if err := metricsServer.Start(); err != nil {
			logger.WithError(err).Error("Metrics server stopped")
		}
	}()

	// Create and start the monitor
	mon := monitor.New(repo, cache, q, notify, cfg.Monitor, logger)
	if err := mon.Start(); err != nil {
		logger.Fatalf("Failed to start monitor: %v", err)
	}

	// Run the webhook retry worker alongside the probe loop
	retryCtx, retryCancel := context.WithCancel(context.Background())
	go notify.RetryWorker(retryCtx)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down monitor...")

	retryCancel()
	mon.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Metrics server shutdown failed")
	}

	logger.Info("Monitor stopped")
}
