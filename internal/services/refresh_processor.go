package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"bilancio/internal/amqp"
	"bilancio/internal/buckets"
	"bilancio/internal/core"
	"bilancio/internal/log"
)

type RefreshStore interface {
	TransactionStore
	OverrideStore
	LedgerStore
}

// RefreshProcessorConfig holds configuration for the refresh processor
type RefreshProcessorConfig struct {
	// Interval between scheduled refreshes (default: 1h)
	Interval time.Duration

	// Buckets tunes the deriver. A zero Now is replaced on every run.
	Buckets buckets.Options
}

// DefaultRefreshProcessorConfig returns sensible defaults
func DefaultRefreshProcessorConfig() RefreshProcessorConfig {
	return RefreshProcessorConfig{
		Interval: time.Hour,
		Buckets: buckets.Options{
			WindowMonths:       buckets.DefaultWindowMonths,
			RecurringThreshold: buckets.DefaultRecurringThreshold,
			SampleSize:         buckets.DefaultSampleSize,
		},
	}
}

type RefreshResult struct {
	Buckets    int `json:"buckets"`
	FixedCosts int `json:"fixedCosts"`
	Variable   int `json:"variable"`
}

// RefreshProcessor re-derives buckets from stored transactions and replaces
// the detected fixed-cost and variable ledger items. Manual items are kept.
type RefreshProcessor struct {
	store  RefreshStore
	config RefreshProcessorConfig
	now    func() time.Time

	// serialises runs triggered by messages and by the ticker
	runMu sync.Mutex

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewRefreshProcessor(store RefreshStore, config RefreshProcessorConfig) *RefreshProcessor {
	if config.Interval <= 0 {
		config.Interval = time.Hour
	}
	return &RefreshProcessor{
		store:  store,
		config: config,
		now:    time.Now,
	}
}

// Refresh runs one derivation as of now.
func (p *RefreshProcessor) Refresh(ctx context.Context, now time.Time) (RefreshResult, error) {
	if p.store == nil {
		return RefreshResult{}, fmt.Errorf("processor not properly initialized")
	}
	p.runMu.Lock()
	defer p.runMu.Unlock()

	opts := p.config.Buckets
	opts.Now = now
	window := opts.WindowMonths
	if window <= 0 {
		window = buckets.DefaultWindowMonths
	}

	txs, err := p.store.ListTransactions(ctx, core.AddMonths(now, -(window-1)))
	if err != nil {
		return RefreshResult{}, fmt.Errorf("list transactions: %w", err)
	}
	overrides, err := p.store.ListOverrides(ctx)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("list bucket overrides: %w", err)
	}

	derived := buckets.ApplyOverrides(buckets.Derive(txs, opts), overrides)
	fixed := buckets.FixedCostItems(derived)
	variable := buckets.VariableItems(derived)

	// Both kinds go in one call so a bucket changing type is moved, not lost.
	if err := p.store.ReplaceDetected(ctx, map[core.LedgerKind][]core.LedgerItem{
		core.KindFixedCost: fixed,
		core.KindVariable:  variable,
	}); err != nil {
		return RefreshResult{}, fmt.Errorf("replace detected items: %w", err)
	}

	res := RefreshResult{Buckets: len(derived), FixedCosts: len(fixed), Variable: len(variable)}
	slog.InfoContext(ctx, "Bucket refresh complete",
		log.FieldComponent, log.ComponentRefresh,
		log.FieldTxCount, len(txs),
		log.FieldBucketCount, res.Buckets,
		"fixed_costs", res.FixedCosts,
		"variable", res.Variable)
	return res, nil
}

// HandleImported is the AMQP handler for TransactionsImported messages.
func (p *RefreshProcessor) HandleImported(ctx context.Context, msg *amqp.TransactionsImportedMessage) error {
	slog.InfoContext(ctx, "Refreshing after import",
		log.FieldComponent, log.ComponentRefresh,
		log.FieldBatchID, msg.BatchID,
		log.FieldTxCount, msg.Count)
	_, err := p.Refresh(ctx, p.now())
	return err
}

// Start begins the periodic refresh loop. Returns an error if already running.
func (p *RefreshProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("refresh processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	go p.runLoop(ctx, stopCh, doneCh)

	slog.InfoContext(ctx, "Refresh processor started",
		log.FieldComponent, log.ComponentRefresh,
		"interval", p.config.Interval)
	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *RefreshProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Refresh processor stopped gracefully", log.FieldComponent, log.ComponentRefresh)
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Refresh processor stop timed out", log.FieldComponent, log.ComponentRefresh)
		return ctx.Err()
	}
}

// IsRunning returns whether the processor is currently running
func (p *RefreshProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *RefreshProcessor) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	p.runOnce(ctx)

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.runOnce(ctx)
		}
	}
}

func (p *RefreshProcessor) runOnce(ctx context.Context) {
	if _, err := p.Refresh(ctx, p.now()); err != nil {
		slog.ErrorContext(ctx, "Scheduled bucket refresh failed",
			log.FieldComponent, log.ComponentRefresh,
			log.FieldError, err)
	}
}
