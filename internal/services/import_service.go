package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"bilancio/internal/core"
	"bilancio/internal/log"
)

// ErrEmptyBatch is returned when an import carries no records.
var ErrEmptyBatch = errors.New("empty transaction batch")

// RecordError reports the first invalid record of a rejected batch.
type RecordError struct {
	Index int
	ID    string
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d (%s): %v", e.Index, e.ID, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

type ImportResult struct {
	BatchID  string `json:"batchId"`
	Received int    `json:"received"`
	Inserted int    `json:"inserted"`
}

// ImportService stores transaction batches and announces them over AMQP.
type ImportService struct {
	store     TransactionStore
	publisher Publisher
}

// NewImportService builds the service. A nil publisher disables announcements.
func NewImportService(store TransactionStore, publisher Publisher) *ImportService {
	return &ImportService{
		store:     store,
		publisher: publisher,
	}
}

// Import validates the whole batch, stores it, then publishes a
// TransactionsImported message. Duplicate IDs are skipped by storage.
func (s *ImportService) Import(ctx context.Context, txs []core.TransactionRecord) (ImportResult, error) {
	if len(txs) == 0 {
		return ImportResult{}, ErrEmptyBatch
	}
	for i, tx := range txs {
		if err := tx.Validate(); err != nil {
			return ImportResult{}, &RecordError{Index: i, ID: tx.ID, Err: err}
		}
	}

	batchID := uuid.NewString()
	inserted, err := s.store.InsertTransactions(ctx, batchID, txs)
	if err != nil {
		return ImportResult{}, fmt.Errorf("store transactions: %w", err)
	}

	slog.InfoContext(ctx, "Transactions imported",
		log.FieldComponent, log.ComponentImport,
		log.FieldBatchID, batchID,
		log.FieldTxCount, len(txs),
		"inserted", inserted)

	if inserted > 0 {
		// The batch is stored; a failed announcement only delays the refresh.
		if err := s.publish(ctx, batchID, inserted); err != nil {
			slog.ErrorContext(ctx, "Failed to publish import message",
				log.FieldComponent, log.ComponentImport,
				log.FieldBatchID, batchID,
				log.FieldError, err)
		}
	}

	return ImportResult{BatchID: batchID, Received: len(txs), Inserted: inserted}, nil
}

func (s *ImportService) publish(ctx context.Context, batchID string, count int) error {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping import message", log.FieldBatchID, batchID)
		return nil
	}
	return s.publisher.PublishTransactionsImported(ctx, batchID, count)
}
