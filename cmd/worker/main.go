package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pushkind/crawler-service/config"
	"github.com/pushkind/crawler-service/internal/crawl"
	"github.com/pushkind/crawler-service/internal/database"
	"github.com/pushkind/crawler-service/internal/dispatch"
	"github.com/pushkind/crawler-service/internal/embedding"
	"github.com/pushkind/crawler-service/internal/handlers"
	"github.com/pushkind/crawler-service/internal/jobs"
	"github.com/pushkind/crawler-service/internal/middleware"
	"github.com/pushkind/crawler-service/internal/repository"
	"github.com/pushkind/crawler-service/internal/sweepers"
	"github.com/pushkind/crawler-service/internal/telemetry"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := initLogger(cfg.Logging)
	log.Logger = *logger

	logger.Info().Msg("Starting crawler worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	otelCleanup, err := telemetry.Init(ctx, telemetry.GetConfigFromEnv())
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := otelCleanup(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Failed to shutdown telemetry")
		}
	}()

	dbURL := config.GetDatabaseURL()
	if dbURL == "" {
		logger.Fatal().Msg("DATABASE_URL not set")
	}

	if err := database.Init(ctx, database.PoolConfig{
		URL:             dbURL,
		MaxConns:        cfg.Database.MaxConnections,
		MinConns:        cfg.Database.MinConnections,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
	}); err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	logger.Info().Msg("Database connected")

	repo := repository.New(database.Pool())

	// Flags left behind by a crashed run would block every job for their
	// hub, so clear them before accepting work.
	if cleared, err := repo.ReleaseStaleProcessing(ctx); err != nil {
		logger.Warn().Err(err).Msg("Failed to clear stale processing flags")
	} else if cleared > 0 {
		logger.Info().Int("cleared", cleared).Msg("Cleared stale processing flags")
	}

	processor := jobs.New(jobs.Config{
		Store: repo,
		NewProvider: func() embedding.Provider {
			return embedding.NewHTTPProvider(embedding.HTTPProviderConfig{
				Endpoint:  cfg.Embedding.Endpoint,
				Model:     cfg.Embedding.Model,
				Dimension: cfg.Embedding.Dimension,
				Timeout:   cfg.Embedding.Timeout,
			})
		},
		Retry: retryConfig(cfg.Embedding),
		Fetcher: crawl.FetcherConfig{
			Concurrency:       cfg.Crawl.Concurrency,
			RequestTimeoutSec: int(cfg.Crawl.RequestTimeout / time.Second),
			RequestsPerSecond: cfg.Crawl.RequestsPerSecond,
		},
	})

	flagSweeper := sweepers.NewStaleFlagSweeper(repo, processor, logger, 5*time.Minute)
	go flagSweeper.Start(ctx)

	consumer := dispatch.NewConsumer(dispatch.ConsumerConfig{
		Address:      config.GetZMQAddress(),
		DrainTimeout: cfg.Worker.DrainTimeout,
		Logger:       *logger,
	})
	consumer.RegisterHandler(dispatch.KindCrawl, func(ctx context.Context, env dispatch.Envelope) error {
		return processor.ProcessCrawl(ctx, env.Crawler.Selector, env.Crawler.URLs)
	})
	consumer.RegisterHandler(dispatch.KindBenchmark, func(ctx context.Context, env dispatch.Envelope) error {
		return processor.ProcessBenchmark(ctx, *env.Benchmark)
	})
	consumer.RegisterHandler(dispatch.KindCategoryMatch, func(ctx context.Context, env dispatch.Envelope) error {
		return processor.ProcessCategoryMatch(ctx, *env.CategoryMatch)
	})

	if err := consumer.Listen(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to bind control socket")
	}

	consumerDone := make(chan error, 1)
	go func() { consumerDone <- consumer.Run(ctx) }()

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%d", cfg.Ops.Host, cfg.Ops.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Ops.ReadTimeout,
		WriteTimeout: cfg.Ops.WriteTimeout,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("Ops server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start ops server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down worker...")
	flagSweeper.Stop()
	cancel()

	// Run drains in-flight jobs for up to the configured drain timeout.
	if err := <-consumerDone; err != nil {
		logger.Error().Err(err).Msg("Consumer stopped with error")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Ops server forced to shutdown")
	}

	logger.Info().Msg("Worker exited")
}

func retryConfig(cfg config.EmbeddingConfig) embedding.RetryConfig {
	retry := embedding.DefaultRetryConfig()
	if cfg.MaxRetries > 0 {
		retry.MaxRetries = cfg.MaxRetries
	}
	return retry
}

func initLogger(cfg config.LoggingConfig) *zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var output io.Writer
	if cfg.Format == "json" {
		output = os.Stdout
	} else {
		output = zerolog.ConsoleWriter{Out: os.Stdout, NoColor: cfg.NoColor}
	}

	logger := zerolog.New(output).Level(level).With().Timestamp().Str("service", "crawler-worker").Logger()
	return &logger
}
