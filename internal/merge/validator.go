package merge

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/joshsymonds/coalesce/internal/model"
)

// Validator checks that every transaction in a selection carries the same
// arithmetic sign before a merge is allowed.
//
// The check is advisory: when any lookup fails, the verdict falls back to
// consistent so a flaky read never blocks the user. The caller is told the
// check did not run via SignVerdict.Advisory.
type Validator struct {
	source TransactionSource
	logger *slog.Logger
}

// NewValidator creates a new sign-consistency validator.
func NewValidator(source TransactionSource, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{
		source: source,
		logger: logger,
	}
}

// Validate fetches each transaction and reports whether all amounts share
// one sign class. A selection of zero or one transactions is trivially
// consistent. Lookups run concurrently; the first failure cancels the rest.
func (v *Validator) Validate(ctx context.Context, ids []int64) model.SignVerdict {
	classes := make(map[int64]model.SignClass, len(ids))

	if len(ids) > 1 {
		var mu sync.Mutex
		g, gctx := errgroup.WithContext(ctx)
		for _, id := range ids {
			g.Go(func() error {
				txn, err := v.source.GetTransaction(gctx, id)
				if err != nil {
					return err
				}
				mu.Lock()
				classes[id] = model.ClassifyAmount(txn.Amount)
				mu.Unlock()
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			// Fail open: the check is advisory and must not block the
			// merge when the ledger cannot be read.
			v.logger.Debug("sign check unavailable, allowing merge",
				"ids", ids,
				"error", err)
			return model.SignVerdict{Consistent: true, Advisory: false}
		}
	} else {
		for _, id := range ids {
			txn, err := v.source.GetTransaction(ctx, id)
			if err != nil {
				v.logger.Debug("sign check unavailable, allowing merge",
					"ids", ids,
					"error", err)
				return model.SignVerdict{Consistent: true, Advisory: false}
			}
			classes[id] = model.ClassifyAmount(txn.Amount)
		}
	}

	return model.SignVerdict{
		Classes:    classes,
		Consistent: allSameClass(classes),
		Advisory:   true,
	}
}

// allSameClass reports whether every sign class in the map is equal.
// Trivially true for zero or one entries.
func allSameClass(classes map[int64]model.SignClass) bool {
	first := true
	var ref model.SignClass
	for _, class := range classes {
		if first {
			ref = class
			first = false
			continue
		}
		if class != ref {
			return false
		}
	}
	return true
}
