package merge

import (
	"context"
	"sync"

	"github.com/joshsymonds/coalesce/internal/common"
	"github.com/joshsymonds/coalesce/internal/model"
)

// MockLedger is a test implementation of TransactionSource and Merger.
// It serves transactions from an in-memory map and records merge calls.
type MockLedger struct {
	transactions map[int64]model.Transaction
	lookupErrs   map[int64]error
	mergeErr     error
	mergeReceipt *model.MergeReceipt
	mergeCalls   []MockMergeCall
	mergeGate    chan struct{}
	mu           sync.Mutex
}

// MockMergeCall records details of one merge submission.
type MockMergeCall struct {
	Note string
	IDs  []int64
}

// NewMockLedger creates a new mock ledger with no transactions.
func NewMockLedger() *MockLedger {
	return &MockLedger{
		transactions: make(map[int64]model.Transaction),
		lookupErrs:   make(map[int64]error),
	}
}

// AddTransaction seeds a transaction with the given amount.
func (m *MockLedger) AddTransaction(id int64, amount float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions[id] = model.Transaction{ID: id, Amount: amount}
}

// FailLookup makes GetTransaction for the given ID return err.
func (m *MockLedger) FailLookup(id int64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookupErrs[id] = err
}

// SetMergeResult configures the outcome of the next merge submissions.
func (m *MockLedger) SetMergeResult(receipt *model.MergeReceipt, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mergeReceipt = receipt
	m.mergeErr = err
}

// BlockMerges makes merge submissions block until the returned function is
// called.
func (m *MockLedger) BlockMerges() func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	gate := make(chan struct{})
	m.mergeGate = gate
	return func() { close(gate) }
}

// MergeCalls returns the recorded merge submissions.
func (m *MockLedger) MergeCalls() []MockMergeCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := make([]MockMergeCall, len(m.mergeCalls))
	copy(calls, m.mergeCalls)
	return calls
}

// GetTransaction returns a seeded transaction or a configured error.
func (m *MockLedger) GetTransaction(_ context.Context, id int64) (*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.lookupErrs[id]; ok {
		return nil, err
	}
	txn, ok := m.transactions[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &txn, nil
}

// MergeTransactions records the call and returns the configured result.
func (m *MockLedger) MergeTransactions(_ context.Context, ids []int64, note string) (*model.MergeReceipt, error) {
	m.mu.Lock()
	recorded := make([]int64, len(ids))
	copy(recorded, ids)
	m.mergeCalls = append(m.mergeCalls, MockMergeCall{IDs: recorded, Note: note})
	gate := m.mergeGate
	receipt := m.mergeReceipt
	err := m.mergeErr
	m.mu.Unlock()

	if gate != nil {
		<-gate
	}

	if err != nil {
		return nil, err
	}
	if receipt == nil {
		receipt = &model.MergeReceipt{}
	}
	return receipt, nil
}
