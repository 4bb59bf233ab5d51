package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joshsymonds/coalesce/internal/common"
	"github.com/joshsymonds/coalesce/internal/model"
	"github.com/joshsymonds/coalesce/internal/service"
)

// SaveTransactions caches transactions fetched from the ledger. Existing
// rows are replaced so the cache tracks the remote state.
func (s *SQLiteStore) SaveTransactions(ctx context.Context, transactions []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransactions(transactions); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO transactions (
			id, date, name, merchant_name, amount, category, note
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, txn := range transactions {
		if _, err := stmt.ExecContext(ctx,
			txn.ID, txn.Date, txn.Name, txn.MerchantName,
			txn.Amount, txn.Category, txn.Note); err != nil {
			return fmt.Errorf("failed to save transaction %d: %w", txn.ID, err)
		}
	}

	return tx.Commit()
}

// GetTransactionByID returns a cached transaction, or common.ErrNotFound.
func (s *SQLiteStore) GetTransactionByID(ctx context.Context, id int64) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var txn model.Transaction
	var merchant, category, note sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, date, name, merchant_name, amount, category, note
		FROM transactions WHERE id = ?
	`, id).Scan(&txn.ID, &txn.Date, &txn.Name, &merchant, &txn.Amount, &category, &note)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	txn.MerchantName = merchant.String
	txn.Category = category.String
	txn.Note = note.String
	return &txn, nil
}

// GetUncategorized returns cached transactions without a category, oldest
// first.
func (s *SQLiteStore) GetUncategorized(ctx context.Context) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, name, merchant_name, amount, category, note
		FROM transactions
		WHERE category IS NULL OR category = ''
		ORDER BY date ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query uncategorized transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var txns []model.Transaction
	for rows.Next() {
		var txn model.Transaction
		var merchant, category, note sql.NullString
		if err := rows.Scan(&txn.ID, &txn.Date, &txn.Name, &merchant,
			&txn.Amount, &category, &note); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txn.MerchantName = merchant.String
		txn.Category = category.String
		txn.Note = note.String
		txns = append(txns, txn)
	}

	return txns, rows.Err()
}

// UpdateTransactionCategory records a category on a cached transaction.
func (s *SQLiteStore) UpdateTransactionCategory(ctx context.Context, id int64, category string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(category, "category"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET category = ? WHERE id = ?`, category, id)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("transaction %d: %w", id, common.ErrNotFound)
	}
	return nil
}

// RecordMerge appends one entry to the local merge audit log. A newID of 0
// means the ledger did not report a merged ID.
func (s *SQLiteStore) RecordMerge(ctx context.Context, ids []int64, note string, newID int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(ids) == 0 {
		return fmt.Errorf("%w: ids", ErrEmptySlice)
	}

	var newIDVal any
	if newID != 0 {
		newIDVal = newID
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO merges (source_ids, note, new_id) VALUES (?, ?, ?)
	`, joinIDs(ids), note, newIDVal)
	if err != nil {
		return fmt.Errorf("failed to record merge: %w", err)
	}
	return nil
}

// GetMergeHistory returns the most recent merge audit entries.
func (s *SQLiteStore) GetMergeHistory(ctx context.Context, limit int) ([]service.MergeRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT source_ids, note, new_id, merged_at
		FROM merges ORDER BY merged_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query merge history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []service.MergeRecord
	for rows.Next() {
		var record service.MergeRecord
		var sourceIDs, note sql.NullString
		var newID sql.NullInt64
		var mergedAt time.Time
		if err := rows.Scan(&sourceIDs, &note, &newID, &mergedAt); err != nil {
			return nil, fmt.Errorf("failed to scan merge record: %w", err)
		}
		record.SourceIDs = splitIDs(sourceIDs.String)
		record.Note = note.String
		record.NewID = newID.Int64
		record.MergedAt = mergedAt
		records = append(records, record)
	}

	return records, rows.Err()
}

// SaveExplanation caches a fetched explanation text.
func (s *SQLiteStore) SaveExplanation(ctx context.Context, transactionID int64, text string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO explanations (transaction_id, text) VALUES (?, ?)
	`, transactionID, text)
	if err != nil {
		return fmt.Errorf("failed to save explanation: %w", err)
	}
	return nil
}

// GetExplanation returns a cached explanation text, if any.
func (s *SQLiteStore) GetExplanation(ctx context.Context, transactionID int64) (string, bool, error) {
	if err := validateContext(ctx); err != nil {
		return "", false, err
	}

	var text string
	err := s.db.QueryRowContext(ctx,
		`SELECT text FROM explanations WHERE transaction_id = ?`, transactionID).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get explanation: %w", err)
	}
	return text, true, nil
}

// joinIDs encodes a set of transaction IDs as a comma-separated string.
func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

// splitIDs decodes a comma-separated ID string, skipping malformed parts.
func splitIDs(s string) []int64 {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
