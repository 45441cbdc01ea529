package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"theshelf/database"
	"theshelf/internal/config"
	"theshelf/internal/embedding"
	"theshelf/internal/microservices/http-api/handler"
	"theshelf/internal/microservices/http-api/middleware"
	"theshelf/internal/microservices/http-api/repository"
	"theshelf/internal/microservices/http-api/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}

	logger := config.NewLogger(cfg, os.Stdout)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server_exited", "error", err)
		os.Exit(1)
	}
}

// run wires the server and blocks until shutdown.
func run(cfg *config.Config, logger *slog.Logger) error {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.OpenGorm(cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer database.Close(db)

	if err := database.Migrate(db, logger); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	pool, err := database.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect pgx pool: %w", err)
	}
	defer pool.Close()

	cache, err := embedding.NewCache(cfg.RedisAddr(), cfg.RedisPassword, time.Duration(cfg.CacheTTL)*time.Second)
	if err != nil {
		logger.Warn("embedding_cache_disabled", "error", err)
		cache = nil
	}
	defer cache.Close()

	var embedder embedding.Service = embedding.Disabled{}
	if cfg.EmbeddingEnabled() {
		embedder = embedding.NewClient(embedding.ClientConfig{
			BaseURL:    cfg.EmbeddingAPIURL,
			APIKey:     cfg.EmbeddingAPIKey,
			Dimensions: cfg.EmbeddingDimensions,
			Timeout:    cfg.EmbeddingTimeout,
			RateLimit:  cfg.EmbeddingRateLimit,
			Cache:      cache,
			Logger:     logger,
		})
	} else {
		logger.Warn("embedding_service_not_configured")
	}

	// Repositories
	ratingRepo := repository.NewRatingRepository(db)
	bookRepo := repository.NewBookRepository(db)
	libraryRepo := repository.NewLibraryRepository(db)

	// Services
	authService := service.NewAuthService(cfg.JWTSecret)
	fingerprints := service.NewFingerprintService(ratingRepo, bookRepo, logger)
	ratings := service.NewRatingService(ratingRepo, bookRepo, fingerprints, logger)

	simCfg := service.DefaultSimilarityConfig()
	simCfg.ReliabilityFloor = cfg.ReliabilityFloor
	simCfg.NeutralFill = cfg.NeutralFill
	simCfg.CandidateCap = cfg.EmbeddingCandidateCap
	simCfg.LookupTimeout = cfg.EmbeddingLookupTimeout
	similarity := service.NewSimilarityService(bookRepo, ratingRepo, simCfg, logger)

	recCfg := service.DefaultRecommendConfig()
	recCfg.FavoriteCount = cfg.FavoriteCount
	recCfg.PopularMinRatings = cfg.PopularMinRatings
	recommendations := service.NewRecommendationService(libraryRepo, bookRepo, similarity, recCfg, logger)

	moods := service.NewMoodService(bookRepo, cfg.ReliabilityFloor, logger)
	bookEmbeddings := service.NewBookEmbeddingService(bookRepo, embedder, logger)

	// Handlers
	ratingHandler := handler.NewRatingHandler(ratings)
	bookHandler := handler.NewBookHandler(fingerprints, similarity, bookEmbeddings)
	recommendationHandler := handler.NewRecommendationHandler(recommendations)
	moodHandler := handler.NewMoodHandler(moods)

	checks := map[string]handler.Pinger{
		"postgres": handler.PingFunc(pool.Ping),
	}
	if cache != nil {
		checks["redis"] = handler.PingFunc(cache.Ping)
	}
	healthHandler := handler.NewHealthHandler(checks)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))

	r.GET("/health", healthHandler.Check)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	bookHandler.RegisterRoutes(api, middleware.OptionalAuth(authService))
	moodHandler.RegisterRoutes(api)

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(authService))
	ratingHandler.RegisterRoutes(protected)
	recommendationHandler.RegisterRoutes(protected)
	bookHandler.RegisterProtectedRoutes(protected)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		logger.Info("starting_http_server", "addr", srv.Addr, "env", cfg.GoEnv, "embeddings", cfg.EmbeddingEnabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		logger.Info("received_shutdown_signal")
	case err := <-errChan:
		return fmt.Errorf("http server: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server_stopped_gracefully")
	return nil
}
