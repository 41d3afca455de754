// Package worker runs the bucket refresh loop next to the import consumer.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"bilancio/internal/amqp"
	"bilancio/internal/log"
	"bilancio/internal/services"
)

// Consumer delivers TransactionsImported messages until ctx is done or the
// broker connection drops.
type Consumer interface {
	ConsumeTransactionsImported(ctx context.Context, handler func(context.Context, *amqp.TransactionsImportedMessage) error) error
}

// RefreshWorker keeps detected fixed costs current: once at startup, on
// every interval tick, and after each import announced on the queue.
type RefreshWorker struct {
	processor     *services.RefreshProcessor
	consumer      Consumer
	retryInterval time.Duration
}

// NewRefreshWorker builds a worker. A nil consumer runs the periodic loop only.
func NewRefreshWorker(processor *services.RefreshProcessor, consumer Consumer) *RefreshWorker {
	return &RefreshWorker{
		processor:     processor,
		consumer:      consumer,
		retryInterval: 5 * time.Second,
	}
}

// Run blocks until ctx is cancelled. A consumer that stops with an error is
// restarted after retryInterval.
func (w *RefreshWorker) Run(ctx context.Context) error {
	if err := w.processor.Start(ctx); err != nil {
		return fmt.Errorf("start refresh processor: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = w.processor.Stop(stopCtx)
	}()

	if w.consumer == nil {
		slog.InfoContext(ctx, "No message consumer configured, running periodic refresh only",
			log.FieldComponent, log.ComponentWorker)
		<-ctx.Done()
		return nil
	}

	for {
		err := w.consumer.ConsumeTransactionsImported(ctx, w.processor.HandleImported)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			err = errors.New("delivery channel closed")
		}
		slog.ErrorContext(ctx, "Message consumption stopped, retrying",
			log.FieldComponent, log.ComponentWorker,
			log.FieldError, err,
			"retry_in", w.retryInterval)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(w.retryInterval):
		}
	}
}
