// Package merge implements the sign-consistency check and the merge
// submission workflow for duplicate transactions.
package merge

import (
	"context"

	"github.com/joshsymonds/coalesce/internal/model"
)

// TransactionSource defines the contract for transaction lookup during
// validation.
type TransactionSource interface {
	GetTransaction(ctx context.Context, id int64) (*model.Transaction, error)
}

// Merger defines the contract for submitting a merge to the ledger.
type Merger interface {
	MergeTransactions(ctx context.Context, ids []int64, note string) (*model.MergeReceipt, error)
}
