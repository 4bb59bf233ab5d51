// Package review implements the uncategorized-transaction review workflow:
// listing transactions the ledger could not categorize, fetching a
// suggestion for each, and applying accepted suggestions.
package review

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/joshsymonds/coalesce/internal/common"
	"github.com/joshsymonds/coalesce/internal/model"
	"github.com/joshsymonds/coalesce/internal/service"
)

// Reviewer drives the review workflow against the ledger, mirroring
// fetched transactions into the local cache.
type Reviewer struct {
	ledger    service.Ledger
	store     service.Store
	logger    *slog.Logger
	retryOpts service.RetryOptions
}

// Stats summarizes one bulk application run.
type Stats struct {
	Duration time.Duration
	Applied  int
	Skipped  int
	Errors   int
}

// NewReviewer creates a new reviewer. The store may be nil, in which case
// results are not mirrored locally.
func NewReviewer(ledger service.Ledger, store service.Store, logger *slog.Logger) *Reviewer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reviewer{
		ledger: ledger,
		store:  store,
		logger: logger,
		retryOpts: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: time.Second,
		},
	}
}

// Pending returns the uncategorized transactions, refreshing the local
// cache from the ledger.
func (r *Reviewer) Pending(ctx context.Context) ([]model.Transaction, error) {
	var txns []model.Transaction
	err := common.WithRetry(ctx, func() error {
		var listErr error
		txns, listErr = r.ledger.ListUncategorized(ctx)
		return listErr
	}, r.retryOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to list uncategorized transactions: %w", err)
	}

	if r.store != nil && len(txns) > 0 {
		if saveErr := r.store.SaveTransactions(ctx, txns); saveErr != nil {
			r.logger.Debug("failed to cache transactions", "error", saveErr)
		}
	}

	return txns, nil
}

// Suggest fetches a category suggestion for one transaction.
func (r *Reviewer) Suggest(ctx context.Context, id int64) (*model.Suggestion, error) {
	var suggestion *model.Suggestion
	err := common.WithRetry(ctx, func() error {
		var suggestErr error
		suggestion, suggestErr = r.ledger.Categorize(ctx, id)
		return suggestErr
	}, r.retryOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to get suggestion for transaction %d: %w", id, err)
	}
	return suggestion, nil
}

// Accept applies a category to a transaction on the ledger and mirrors it
// into the local cache.
func (r *Reviewer) Accept(ctx context.Context, id int64, category string) error {
	if category == "" {
		return fmt.Errorf("category is required")
	}

	if err := r.ledger.ApplyCategory(ctx, id, category); err != nil {
		return fmt.Errorf("failed to apply category to transaction %d: %w", id, err)
	}

	if r.store != nil {
		if updateErr := r.store.UpdateTransactionCategory(ctx, id, category); updateErr != nil {
			r.logger.Debug("failed to update cached category",
				"transaction_id", id,
				"error", updateErr)
		}
	}

	return nil
}

// ApplyAll fetches a suggestion for every pending transaction and applies
// it, showing progress on w. Transactions without a usable suggestion are
// skipped; per-transaction failures are counted, not fatal.
func (r *Reviewer) ApplyAll(ctx context.Context, w io.Writer) (Stats, error) {
	start := time.Now()

	pending, err := r.Pending(ctx)
	if err != nil {
		return Stats{}, err
	}

	bar := progressbar.NewOptions(len(pending),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Applying suggestions..."),
	)

	var stats Stats
	for _, txn := range pending {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}

		suggestion, suggestErr := r.Suggest(ctx, txn.ID)
		if suggestErr != nil {
			r.logger.Debug("skipping transaction, suggestion failed",
				"transaction_id", txn.ID,
				"error", suggestErr)
			stats.Errors++
			_ = bar.Add(1)
			continue
		}
		if suggestion.Category == "" {
			stats.Skipped++
			_ = bar.Add(1)
			continue
		}

		if acceptErr := r.Accept(ctx, txn.ID, suggestion.Category); acceptErr != nil {
			r.logger.Debug("skipping transaction, apply failed",
				"transaction_id", txn.ID,
				"error", acceptErr)
			stats.Errors++
			_ = bar.Add(1)
			continue
		}

		stats.Applied++
		_ = bar.Add(1)
	}

	stats.Duration = time.Since(start)
	return stats, nil
}
