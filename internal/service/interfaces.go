// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/joshsymonds/coalesce/internal/model"
)

// Ledger defines the contract for the remote ledger API.
type Ledger interface {
	// GetTransaction fetches a single transaction by ID.
	GetTransaction(ctx context.Context, id int64) (*model.Transaction, error)

	// MergeTransactions merges the given transactions into one, with an
	// optional note. The receipt's new ID may be absent.
	MergeTransactions(ctx context.Context, ids []int64, note string) (*model.MergeReceipt, error)

	// GetExplanation fetches the categorization rationale for a
	// transaction. Returns an error with status 404 when the ledger has
	// no explanation for it yet.
	GetExplanation(ctx context.Context, id int64) (*model.Explanation, error)

	// Categorize asks the ledger for a category suggestion.
	Categorize(ctx context.Context, id int64) (*model.Suggestion, error)

	// ApplyCategory records an accepted category suggestion.
	ApplyCategory(ctx context.Context, id int64, category string) error

	// ListUncategorized returns transactions without a category.
	ListUncategorized(ctx context.Context) ([]model.Transaction, error)
}

// Store defines the contract for the local cache database.
type Store interface {
	// Transaction cache
	SaveTransactions(ctx context.Context, transactions []model.Transaction) error
	GetTransactionByID(ctx context.Context, id int64) (*model.Transaction, error)
	GetUncategorized(ctx context.Context) ([]model.Transaction, error)
	UpdateTransactionCategory(ctx context.Context, id int64, category string) error

	// Merge audit log
	RecordMerge(ctx context.Context, ids []int64, note string, newID int64) error
	GetMergeHistory(ctx context.Context, limit int) ([]MergeRecord, error)

	// Explanation cache
	SaveExplanation(ctx context.Context, transactionID int64, text string) error
	GetExplanation(ctx context.Context, transactionID int64) (string, bool, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// MergeRecord is one entry in the local merge audit log.
type MergeRecord struct {
	MergedAt  time.Time
	Note      string
	SourceIDs []int64
	NewID     int64
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
