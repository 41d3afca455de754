package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"bilancio/internal/storage"
)

func newTestStore(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	repo, err := storage.NewSQLiteRepository("file:svc_" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fakePublisher struct {
	mu      sync.Mutex
	batches []string
	counts  []int
	err     error
}

func (f *fakePublisher) PublishTransactionsImported(_ context.Context, batchID string, count int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, batchID)
	f.counts = append(f.counts, count)
	return nil
}

var errBroker = errors.New("broker down")
