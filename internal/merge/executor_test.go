package merge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshsymonds/coalesce/internal/api"
	"github.com/joshsymonds/coalesce/internal/common"
	"github.com/joshsymonds/coalesce/internal/model"
)

const (
	testTimeout = 2 * time.Second
	testTick    = 5 * time.Millisecond
)

func consistentVerdict() model.SignVerdict {
	return model.SignVerdict{Consistent: true, Advisory: true}
}

func TestExecutorPreconditions(t *testing.T) {
	tests := []struct {
		wantErr error
		verdict model.SignVerdict
		name    string
		ids     []int64
	}{
		{
			name:    "fewer than two transactions",
			ids:     []int64{101},
			verdict: consistentVerdict(),
			wantErr: common.ErrTooFewTransactions,
		},
		{
			name:    "empty selection",
			ids:     nil,
			verdict: consistentVerdict(),
			wantErr: common.ErrTooFewTransactions,
		},
		{
			name:    "inconsistent verdict",
			ids:     []int64{101, 103},
			verdict: model.SignVerdict{Consistent: false, Advisory: true},
			wantErr: common.ErrSignMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := NewMockLedger()
			executor := NewExecutor(ledger, nil)

			_, err := executor.Execute(context.Background(), tt.ids, "", tt.verdict)

			require.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, ledger.MergeCalls(), "ledger must not be called when preconditions fail")
		})
	}
}

func TestExecutorSuccess(t *testing.T) {
	ledger := NewMockLedger()
	ledger.SetMergeResult(&model.MergeReceipt{NewID: 555, HasNewID: true}, nil)

	executor := NewExecutor(ledger, nil)
	receipt, err := executor.Execute(context.Background(), []int64{101, 102}, "dup charge", consistentVerdict())

	require.NoError(t, err)
	assert.Equal(t, int64(555), receipt.NewID)
	assert.True(t, receipt.HasNewID)

	calls := ledger.MergeCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, []int64{101, 102}, calls[0].IDs)
	assert.Equal(t, "dup charge", calls[0].Note)
}

func TestExecutorFailureMessage(t *testing.T) {
	t.Run("prefers the server message", func(t *testing.T) {
		ledger := NewMockLedger()
		ledger.SetMergeResult(nil, &api.Error{Status: 422, Message: "transactions already merged"})

		executor := NewExecutor(ledger, nil)
		_, err := executor.Execute(context.Background(), []int64{101, 102}, "", consistentVerdict())

		require.Error(t, err)
		var userErr *common.UserError
		require.ErrorAs(t, err, &userErr)
		assert.Equal(t, "transactions already merged", userErr.UserMessage)
	})

	t.Run("falls back to the error string", func(t *testing.T) {
		ledger := NewMockLedger()
		ledger.SetMergeResult(nil, errors.New("connection reset"))

		executor := NewExecutor(ledger, nil)
		_, err := executor.Execute(context.Background(), []int64{101, 102}, "", consistentVerdict())

		require.Error(t, err)
		var userErr *common.UserError
		require.ErrorAs(t, err, &userErr)
		assert.Equal(t, "connection reset", userErr.UserMessage)
	})
}

func TestExecutorSingleFlight(t *testing.T) {
	ledger := NewMockLedger()
	release := ledger.BlockMerges()

	executor := NewExecutor(ledger, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = executor.Execute(context.Background(), []int64{101, 102}, "", consistentVerdict())
	}()

	// Wait for the first submission to reach the ledger.
	require.Eventually(t, func() bool {
		return len(ledger.MergeCalls()) == 1
	}, testTimeout, testTick)

	_, err := executor.Execute(context.Background(), []int64{101, 102}, "", consistentVerdict())
	assert.ErrorIs(t, err, common.ErrMergeInFlight)

	release()
	wg.Wait()

	// Only the first submission ever reached the ledger.
	assert.Len(t, ledger.MergeCalls(), 1)

	// Once the first completes, a new user-initiated attempt is allowed.
	ledger.SetMergeResult(&model.MergeReceipt{}, nil)
	_, err = executor.Execute(context.Background(), []int64{101, 102}, "", consistentVerdict())
	assert.NoError(t, err)
}
