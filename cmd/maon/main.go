package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"maon/internal/amqp"
	"maon/internal/cache"
	"maon/internal/config"
	apphttp "maon/internal/http"
	applog "maon/internal/log"
	"maon/internal/report"
	"maon/internal/services"
	"maon/internal/storage"
	"maon/internal/upload"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: applog.ComponentApp,
	})
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// AMQP is optional: without it, export jobs run inline
	var amqpClient *amqp.Client
	var publisher services.JobPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		publisher = amqpClient
		logger.Info("AMQP export queue enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP not configured, export jobs will run inline")
	}

	uploads, err := upload.NewManager(cfg.UploadDir, cfg.UploadTTL)
	if err != nil {
		logger.Error("Failed to initialize upload manager", "error", err, "dir", cfg.UploadDir)
		os.Exit(1)
	}

	fetcher := report.NewHTTPFetcher(cfg.PhotoFetchTimeout, cfg.PhotoProxyBase)
	exporter := report.NewExporter(fetcher)

	recordSvc := services.NewRecordService(repo)
	exportSvc := services.NewExportService(repo, repo, publisher, exporter, cfg.ExportDir)

	cacheManager := cache.NewManager()
	cacheManager.Register(recordSvc.Cache())
	cacheManager.StartCleanup(time.Minute)
	defer cacheManager.Stop()

	done := make(chan struct{})
	defer close(done)
	uploads.StartJanitor(cfg.SweepEvery, done)

	srv := apphttp.NewServer(":"+cfg.Port, recordSvc, exportSvc, uploads, logger)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 2 * time.Minute // direct PDF exports can be slow
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	}()

	logger.Info("Starting maon server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped")
}
