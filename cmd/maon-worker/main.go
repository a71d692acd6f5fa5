package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"maon/internal/amqp"
	"maon/internal/config"
	applog "maon/internal/log"
	"maon/internal/report"
	"maon/internal/services"
	"maon/internal/storage"
	"maon/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: applog.ComponentWorker,
	})
	applog.SetDefault(logger)

	logger.Info("Starting maon-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the export worker")
		os.Exit(1)
	}

	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	fetcher := report.NewHTTPFetcher(cfg.PhotoFetchTimeout, cfg.PhotoProxyBase)
	exporter := report.NewExporter(fetcher)
	exportSvc := services.NewExportService(repo, repo, nil, exporter, cfg.ExportDir)
	exportWorker := worker.NewExportWorker(exportSvc, repo)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// pick up jobs whose message was lost while the worker was down
	if err := exportWorker.SweepPending(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Startup sweep failed", "error", err)
	}

	// periodic safety-net sweep
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := exportWorker.SweepPending(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("Periodic sweep failed", "error", err)
				}
			}
		}
	}()

	if err := amqpClient.ConsumeExportJobs(ctx, exportWorker.HandleJobMessage); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped")
}
