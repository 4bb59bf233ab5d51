package review

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshsymonds/coalesce/internal/model"
	"github.com/joshsymonds/coalesce/internal/service"
)

// mockLedger is a test implementation of service.Ledger for the review
// workflow.
type mockLedger struct {
	suggestions   map[int64]*model.Suggestion
	suggestErrs   map[int64]error
	applied       map[int64]string
	uncategorized []model.Transaction
	mu            sync.Mutex
}

func newMockLedger() *mockLedger {
	return &mockLedger{
		suggestions: make(map[int64]*model.Suggestion),
		suggestErrs: make(map[int64]error),
		applied:     make(map[int64]string),
	}
}

func (m *mockLedger) GetTransaction(_ context.Context, id int64) (*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, txn := range m.uncategorized {
		if txn.ID == id {
			return &txn, nil
		}
	}
	return nil, errors.New("not found")
}

func (m *mockLedger) MergeTransactions(_ context.Context, _ []int64, _ string) (*model.MergeReceipt, error) {
	return nil, errors.New("not implemented")
}

func (m *mockLedger) GetExplanation(_ context.Context, _ int64) (*model.Explanation, error) {
	return nil, errors.New("not implemented")
}

func (m *mockLedger) Categorize(_ context.Context, id int64) (*model.Suggestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.suggestErrs[id]; ok {
		return nil, err
	}
	if suggestion, ok := m.suggestions[id]; ok {
		return suggestion, nil
	}
	return &model.Suggestion{}, nil
}

func (m *mockLedger) ApplyCategory(_ context.Context, id int64, category string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applied[id] = category
	return nil
}

func (m *mockLedger) ListUncategorized(_ context.Context) ([]model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.uncategorized, nil
}

// mockStore is a minimal service.Store for cache-mirroring assertions.
type mockStore struct {
	categories map[int64]string
	saved      []model.Transaction
	mu         sync.Mutex
}

func newMockStore() *mockStore {
	return &mockStore{categories: make(map[int64]string)}
}

func (s *mockStore) SaveTransactions(_ context.Context, txns []model.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, txns...)
	return nil
}

func (s *mockStore) GetTransactionByID(_ context.Context, _ int64) (*model.Transaction, error) {
	return nil, errors.New("not implemented")
}

func (s *mockStore) GetUncategorized(_ context.Context) ([]model.Transaction, error) {
	return nil, nil
}

func (s *mockStore) UpdateTransactionCategory(_ context.Context, id int64, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[id] = category
	return nil
}

func (s *mockStore) RecordMerge(_ context.Context, _ []int64, _ string, _ int64) error {
	return nil
}

func (s *mockStore) GetMergeHistory(_ context.Context, _ int) ([]service.MergeRecord, error) {
	return nil, nil
}

func (s *mockStore) SaveExplanation(_ context.Context, _ int64, _ string) error {
	return nil
}

func (s *mockStore) GetExplanation(_ context.Context, _ int64) (string, bool, error) {
	return "", false, nil
}

func (s *mockStore) Migrate(_ context.Context) error { return nil }
func (s *mockStore) Close() error                    { return nil }

func testTransaction(id int64) model.Transaction {
	return model.Transaction{
		ID:     id,
		Date:   time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Name:   "UNKNOWN VENDOR",
		Amount: -10.00,
	}
}

func TestPendingMirrorsCache(t *testing.T) {
	ledger := newMockLedger()
	ledger.uncategorized = []model.Transaction{testTransaction(1), testTransaction(2)}
	store := newMockStore()

	reviewer := NewReviewer(ledger, store, nil)
	pending, err := reviewer.Pending(context.Background())

	require.NoError(t, err)
	assert.Len(t, pending, 2)
	assert.Len(t, store.saved, 2)
}

func TestAccept(t *testing.T) {
	ledger := newMockLedger()
	store := newMockStore()
	reviewer := NewReviewer(ledger, store, nil)

	require.NoError(t, reviewer.Accept(context.Background(), 7, "Groceries"))

	assert.Equal(t, "Groceries", ledger.applied[7])
	assert.Equal(t, "Groceries", store.categories[7])

	assert.Error(t, reviewer.Accept(context.Background(), 7, ""))
}

func TestApplyAll(t *testing.T) {
	ledger := newMockLedger()
	ledger.uncategorized = []model.Transaction{
		testTransaction(1),
		testTransaction(2),
		testTransaction(3),
		testTransaction(4),
	}
	ledger.suggestions[1] = &model.Suggestion{Category: "Groceries", Confidence: 0.9}
	ledger.suggestions[2] = &model.Suggestion{Category: "Utilities", Confidence: 0.8}
	// 3 gets an empty suggestion: skipped.
	ledger.suggestErrs[4] = &nonRetryableError{}

	reviewer := NewReviewer(ledger, newMockStore(), nil)
	reviewer.retryOpts = service.RetryOptions{MaxAttempts: 1, InitialDelay: time.Millisecond}

	var out bytes.Buffer
	stats, err := reviewer.ApplyAll(context.Background(), &out)

	require.NoError(t, err)
	assert.Equal(t, 2, stats.Applied)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.Errors)
	assert.Equal(t, "Groceries", ledger.applied[1])
	assert.Equal(t, "Utilities", ledger.applied[2])
	assert.NotContains(t, ledger.applied, int64(3))
}

// nonRetryableError keeps retry loops short in tests.
type nonRetryableError struct{}

func (e *nonRetryableError) Error() string { return "suggestion service down" }
