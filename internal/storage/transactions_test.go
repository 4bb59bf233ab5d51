package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshsymonds/coalesce/internal/common"
	"github.com/joshsymonds/coalesce/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func testTransaction(id int64, amount float64, category string) model.Transaction {
	return model.Transaction{
		ID:       id,
		Date:     time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Name:     "TEST TRANSACTION",
		Amount:   amount,
		Category: category,
	}
}

func TestSaveAndGetTransactions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	txns := []model.Transaction{
		testTransaction(101, -5.00, "Coffee & Dining"),
		testTransaction(102, -12.34, ""),
	}
	require.NoError(t, store.SaveTransactions(ctx, txns))

	got, err := store.GetTransactionByID(ctx, 101)
	require.NoError(t, err)
	assert.Equal(t, int64(101), got.ID)
	assert.InDelta(t, -5.00, got.Amount, 0.001)
	assert.Equal(t, "Coffee & Dining", got.Category)

	_, err = store.GetTransactionByID(ctx, 999)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSaveTransactionsValidation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	assert.Error(t, store.SaveTransactions(ctx, nil))
	assert.Error(t, store.SaveTransactions(ctx, []model.Transaction{}))
	assert.Error(t, store.SaveTransactions(ctx, []model.Transaction{{ID: 0}}))
}

func TestGetUncategorized(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{
		testTransaction(1, -5.00, "Groceries"),
		testTransaction(2, -7.50, ""),
		testTransaction(3, -9.99, ""),
	}))

	uncategorized, err := store.GetUncategorized(ctx)
	require.NoError(t, err)
	require.Len(t, uncategorized, 2)
	assert.Equal(t, int64(2), uncategorized[0].ID)
	assert.Equal(t, int64(3), uncategorized[1].ID)
}

func TestUpdateTransactionCategory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{
		testTransaction(1, -5.00, ""),
	}))

	require.NoError(t, store.UpdateTransactionCategory(ctx, 1, "Groceries"))

	got, err := store.GetTransactionByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Groceries", got.Category)

	err = store.UpdateTransactionCategory(ctx, 999, "Groceries")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestMergeHistory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.RecordMerge(ctx, []int64{101, 102}, "dup charge", 555))
	require.NoError(t, store.RecordMerge(ctx, []int64{7, 8, 9}, "", 0))

	records, err := store.GetMergeHistory(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	byNote := make(map[string][]int64)
	for _, record := range records {
		byNote[record.Note] = record.SourceIDs
	}
	assert.Equal(t, []int64{101, 102}, byNote["dup charge"])
	assert.Equal(t, []int64{7, 8, 9}, byNote[""])

	err = store.RecordMerge(ctx, nil, "", 0)
	assert.Error(t, err)
}

func TestExplanationCache(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, found, err := store.GetExplanation(ctx, 42)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.SaveExplanation(ctx, 42, "recurring subscription"))

	text, found, err := store.GetExplanation(ctx, 42)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "recurring subscription", text)

	// Saving again replaces the cached text.
	require.NoError(t, store.SaveExplanation(ctx, 42, "updated"))
	text, _, err = store.GetExplanation(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "updated", text)
}

func TestJoinSplitIDs(t *testing.T) {
	assert.Equal(t, "101,102", joinIDs([]int64{101, 102}))
	assert.Equal(t, []int64{101, 102}, splitIDs("101,102"))
	assert.Nil(t, splitIDs(""))
	assert.Equal(t, []int64{5}, splitIDs("5,junk"))
}
