package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"bilancio/internal/amqp"
	"bilancio/internal/buckets"
	"bilancio/internal/cli"
	apphttp "bilancio/internal/http"
	"bilancio/internal/log"
	"bilancio/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	bootstrap := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(bootstrap)
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat, log.ComponentApp)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	caches := cli.NewCaches(logger, cfg)
	defer caches.Close()

	// AMQP is optional; without it the worker falls back to periodic refresh.
	var publisher services.Publisher
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, imports will not be announced", log.FieldError, err)
		} else {
			defer client.Close()
			publisher = client
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - imports will not be announced")
	}

	planner := services.NewPlanner(repo,
		services.WithResultCache(caches.Results),
		services.WithComparisonCache(caches.Comparisons),
		services.WithBucketOptions(buckets.Options{
			WindowMonths:       cfg.BucketWindowMonths,
			RecurringThreshold: decimal.NewFromFloat(cfg.RecurringThreshold),
			SampleSize:         buckets.DefaultSampleSize,
		}),
	)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Store:         repo,
		Planner:       planner,
		Importer:      services.NewImportService(repo, publisher),
		Suggestions:   services.NewSuggestionGate(repo, cfg.SuggestionMinConfidence),
		RateLimitRPM:  cfg.RateLimitRPM,
		AllowedOrigin: cfg.AllowedOrigin,
	})
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Starting bilancio server", "port", cfg.Port, "cache", cfg.CacheBackend, "amqp", publisher != nil)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
