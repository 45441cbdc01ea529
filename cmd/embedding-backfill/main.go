package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"theshelf/database"
	"theshelf/internal/config"
	"theshelf/internal/embedding"
	"theshelf/internal/microservices/http-api/repository"
	"theshelf/internal/microservices/http-api/service"
)

func main() {
	batchSize := flag.Int("batch", 100, "books fetched per page")
	workers := flag.Int("workers", 0, "concurrent embedding calls (defaults to BACKFILL_WORKERS)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}
	logger := config.NewLogger(cfg, os.Stdout)

	if *workers <= 0 {
		*workers = cfg.BackfillWorkers
	}

	if err := run(cfg, logger, *workers, *batchSize); err != nil {
		logger.Error("embedding_backfill_failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, workers, batchSize int) error {
	if !cfg.EmbeddingEnabled() {
		return errors.New("embedding service not configured")
	}

	db, err := database.OpenGorm(cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer database.Close(db)

	cache, err := embedding.NewCache(cfg.RedisAddr(), cfg.RedisPassword, time.Duration(cfg.CacheTTL)*time.Second)
	if err != nil {
		logger.Warn("embedding_cache_disabled", "error", err)
		cache = nil
	}
	defer cache.Close()

	client := embedding.NewClient(embedding.ClientConfig{
		BaseURL:    cfg.EmbeddingAPIURL,
		APIKey:     cfg.EmbeddingAPIKey,
		Dimensions: cfg.EmbeddingDimensions,
		Timeout:    cfg.EmbeddingTimeout,
		RateLimit:  cfg.EmbeddingRateLimit,
		Cache:      cache,
		Logger:     logger,
	})

	svc := service.NewBookEmbeddingService(repository.NewBookRepository(db), client, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("embedding_backfill_started", "workers", workers, "batch", batchSize)
	start := time.Now()

	stats, err := svc.Backfill(ctx, workers, batchSize)
	logger.Info("embedding_backfill_summary",
		"submitted", stats.Submitted,
		"embedded", stats.Succeeded,
		"failed", stats.Failed,
		"dropped", stats.Dropped,
		"duration", time.Since(start).String(),
	)
	if err != nil {
		return fmt.Errorf("backfill interrupted: %w", err)
	}
	return nil
}
