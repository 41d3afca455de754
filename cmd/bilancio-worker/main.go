package main

import (
	"context"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"bilancio/internal/amqp"
	"bilancio/internal/buckets"
	"bilancio/internal/cli"
	"bilancio/internal/log"
	"bilancio/internal/services"
	"bilancio/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	bootstrap := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(bootstrap)
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat, log.ComponentWorker)

	logger.Info("Starting bilancio-worker")

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	processor := services.NewRefreshProcessor(repo, services.RefreshProcessorConfig{
		Interval: cfg.RefreshInterval,
		Buckets: buckets.Options{
			WindowMonths:       cfg.BucketWindowMonths,
			RecurringThreshold: decimal.NewFromFloat(cfg.RecurringThreshold),
			SampleSize:         buckets.DefaultSampleSize,
		},
	})

	var consumer worker.Consumer
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer client.Close()
		consumer = client
	} else {
		logger.Info("AMQP disabled - refreshing on interval only", "interval", cfg.RefreshInterval)
	}

	w := worker.NewRefreshWorker(processor, consumer)

	finished := make(chan struct{})
	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		<-finished
	})

	if err := w.Run(ctx); err != nil {
		logger.Error("Worker failed", log.FieldError, err)
		close(finished)
		os.Exit(1)
	}
	close(finished)

	cli.WaitForShutdown(ctx, done)
	logger.Info("bilancio-worker stopped")
}
