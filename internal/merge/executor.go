package merge

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/joshsymonds/coalesce/internal/api"
	"github.com/joshsymonds/coalesce/internal/common"
	"github.com/joshsymonds/coalesce/internal/model"
)

// Executor submits validated merges to the ledger. At most one submission
// may be in flight per executor; a second confirmation while one is running
// is rejected rather than queued. Failed submissions are never retried
// automatically.
type Executor struct {
	merger   Merger
	logger   *slog.Logger
	inFlight atomic.Bool
}

// NewExecutor creates a new merge executor.
func NewExecutor(merger Merger, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		merger: merger,
		logger: logger,
	}
}

// InFlight reports whether a submission is currently running.
func (e *Executor) InFlight() bool {
	return e.inFlight.Load()
}

// Execute submits a merge for the given transactions. All preconditions
// must hold or the ledger is never called: at least two transactions, a
// consistent sign verdict, and no submission already in flight.
func (e *Executor) Execute(ctx context.Context, ids []int64, note string, verdict model.SignVerdict) (*model.MergeReceipt, error) {
	if len(ids) < 2 {
		return nil, common.ErrTooFewTransactions
	}
	if !verdict.Consistent {
		return nil, common.ErrSignMismatch
	}
	if !e.inFlight.CompareAndSwap(false, true) {
		return nil, common.ErrMergeInFlight
	}
	defer e.inFlight.Store(false)

	receipt, err := e.merger.MergeTransactions(ctx, ids, note)
	if err != nil {
		e.logger.Error("merge submission failed",
			"ids", ids,
			"error", err)
		return nil, common.NewUserError(api.ErrorMessage(err), err)
	}

	e.logger.Info("merged transactions",
		"ids", ids,
		"new_id", receipt.NewID,
		"has_new_id", receipt.HasNewID)
	return receipt, nil
}

// Describe renders a short summary of a verdict for display, naming the
// mismatched signs when the check failed.
func Describe(verdict model.SignVerdict) string {
	if !verdict.Advisory {
		return "sign check unavailable"
	}
	if verdict.Consistent {
		return "all amounts share the same sign"
	}

	counts := make(map[model.SignClass]int)
	for _, class := range verdict.Classes {
		counts[class]++
	}
	return fmt.Sprintf("mixed signs: %d positive, %d negative, %d zero",
		counts[model.SignPositive], counts[model.SignNegative], counts[model.SignZero])
}
