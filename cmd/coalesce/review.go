package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/joshsymonds/coalesce/internal/review"
)

func reviewCmd() *cobra.Command {
	var applyAll bool

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review uncategorized transactions",
		Long: `Review transactions the ledger could not categorize. For each one,
a category suggestion is fetched; accept it, skip it, or quit.

With --apply-all, every suggestion is applied without prompting.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ledger, err := initLedger()
			if err != nil {
				return err
			}

			store, err := initStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			reviewer := review.NewReviewer(ledger, store, slog.Default())

			if applyAll {
				stats, applyErr := reviewer.ApplyAll(cmd.Context(), cmd.OutOrStdout())
				if applyErr != nil {
					return applyErr
				}
				cmd.Printf("\nApplied %d, skipped %d, %d errors in %s\n",
					stats.Applied, stats.Skipped, stats.Errors, stats.Duration.Round(time.Second))
				return nil
			}

			return runReviewLoop(cmd, reviewer)
		},
	}

	cmd.Flags().BoolVar(&applyAll, "apply-all", false, "apply every suggestion without prompting")

	return cmd
}

// runReviewLoop walks the pending transactions one at a time.
func runReviewLoop(cmd *cobra.Command, reviewer *review.Reviewer) error {
	ctx := cmd.Context()

	pending, err := reviewer.Pending(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		cmd.Println("Nothing to review.")
		return nil
	}

	reader := bufio.NewReader(os.Stdin)
	accepted := 0

	for i, txn := range pending {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		cmd.Printf("\n[%d/%d] #%d  %s  %.2f\n", i+1, len(pending), txn.ID, txn.Name, txn.Amount)

		suggestion, suggestErr := reviewer.Suggest(ctx, txn.ID)
		if suggestErr != nil {
			cmd.Printf("  no suggestion available: %v\n", suggestErr)
			continue
		}

		cmd.Printf("  suggested: %s (%.0f%%)\n", suggestion.Category, suggestion.Confidence*100)
		if suggestion.Rationale != "" {
			cmd.Printf("  %s\n", suggestion.Rationale)
		}
		cmd.Print("  accept? [y/n/q] ")

		line, readErr := reader.ReadString('\n')
		if readErr != nil {
			return fmt.Errorf("failed to read input: %w", readErr)
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			if acceptErr := reviewer.Accept(ctx, txn.ID, suggestion.Category); acceptErr != nil {
				cmd.Printf("  failed: %v\n", acceptErr)
				continue
			}
			accepted++
		case "q", "quit":
			cmd.Printf("\nAccepted %d of %d.\n", accepted, len(pending))
			return nil
		}
	}

	cmd.Printf("\nAccepted %d of %d.\n", accepted, len(pending))
	return nil
}
