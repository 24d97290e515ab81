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

	"github.com/tungarlabs/fuelbills/internal/common"
	"github.com/tungarlabs/fuelbills/internal/document"
	"github.com/tungarlabs/fuelbills/internal/export"
	"github.com/tungarlabs/fuelbills/internal/ingest"
	"github.com/tungarlabs/fuelbills/internal/llm/gemini"
	"github.com/tungarlabs/fuelbills/internal/observability/metrics"
	"github.com/tungarlabs/fuelbills/internal/pipeline"
	"github.com/tungarlabs/fuelbills/internal/repository"
	"github.com/tungarlabs/fuelbills/internal/server"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open database", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.HealthCheck(ctx, 3*time.Second); err != nil {
		logger.Error("database health check failed", "error", err)
		os.Exit(1)
	}
	logger.Info("database ready", "driver", store.Driver)

	metrics.Init()

	filesRepo := repository.NewBillFileRepository(store, logger)
	jobsRepo := repository.NewExtractJobRepository(store, logger)
	billsRepo := repository.NewBillRepository(store, logger)

	loader := document.New(document.Config{
		MaxFileSize: cfg.Server.MaxUploadBytes,
		Logger:      logger,
	})

	model := gemini.NewClient(gemini.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, logger)
	logger.Info("model client initialized", "model", cfg.LLM.Model)

	ingestor := ingest.NewFSIngestor(filesRepo, logger)
	processor := pipeline.NewProcessor(logger, loader, model, filesRepo, jobsRepo, billsRepo, cfg.LLM.Model)
	exporter := export.NewService(billsRepo, logger)

	svc := server.NewService(cfg.Server, logger, ingestor, processor, exporter, model)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           svc.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http serving", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("stopped")
}
