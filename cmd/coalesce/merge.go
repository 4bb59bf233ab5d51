package main

import (
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/joshsymonds/coalesce/internal/merge"
	"github.com/joshsymonds/coalesce/internal/service"
	"github.com/joshsymonds/coalesce/internal/tui"
)

func mergeCmd() *cobra.Command {
	var note string
	var yes bool

	cmd := &cobra.Command{
		Use:   "merge <id> <id> [id...]",
		Short: "Merge duplicate transactions into one",
		Long: `Merge two or more transactions into a single one.

Before merging, the amounts are checked for sign consistency: merging an
expense with an income is almost always a mistake, so mixed signs disable
the merge. If the check itself cannot run, the merge is still allowed.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}

			ledger, err := initLedger()
			if err != nil {
				return err
			}

			store, err := initStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if yes {
				return runMergeDirect(cmd, ledger, store, ids, note)
			}
			return runMergeDialog(cmd, ledger, store, ids)
		},
	}

	cmd.Flags().StringVar(&note, "note", "", "note to attach to the merged transaction")
	cmd.Flags().BoolVar(&yes, "yes", false, "merge without the interactive dialog")

	return cmd
}

// runMergeDirect validates and merges without the TUI.
func runMergeDirect(cmd *cobra.Command, ledger service.Ledger, store service.Store, ids []int64, note string) error {
	ctx := cmd.Context()
	logger := slog.Default()

	validator := merge.NewValidator(ledger, logger)
	verdict := validator.Validate(ctx, ids)
	if verdict.Advisory && !verdict.Consistent {
		return fmt.Errorf("refusing to merge: %s", merge.Describe(verdict))
	}
	if !verdict.Advisory {
		cmd.Println("Sign check unavailable; merging anyway.")
	}

	executor := merge.NewExecutor(ledger, logger)
	receipt, err := executor.Execute(ctx, ids, note, verdict)
	if err != nil {
		return err
	}

	recordMerge(cmd, store, ids, note, receipt.NewID)

	if receipt.HasNewID {
		cmd.Printf("Merged %d transactions into #%d\n", len(ids), receipt.NewID)
	} else {
		cmd.Printf("Merged %d transactions\n", len(ids))
	}
	return nil
}

// runMergeDialog runs the interactive merge dialog.
func runMergeDialog(cmd *cobra.Command, ledger service.Ledger, store service.Store, ids []int64) error {
	logger := slog.Default()
	dialog := tui.NewMergeDialog(ids,
		merge.NewValidator(ledger, logger),
		merge.NewExecutor(ledger, logger))

	program := tea.NewProgram(mergeDialogApp{dialog})
	final, err := program.Run()
	if err != nil {
		return fmt.Errorf("dialog failed: %w", err)
	}

	app, ok := final.(mergeDialogApp)
	if !ok || app.dialog.Canceled() {
		cmd.Println("Merge canceled.")
		return nil
	}

	newID, hasNewID := app.dialog.Result()
	recordMerge(cmd, store, ids, "", newID)

	if hasNewID {
		cmd.Printf("Merged %d transactions into #%d\n", len(ids), newID)
	} else {
		cmd.Printf("Merged %d transactions\n", len(ids))
	}
	return nil
}

// recordMerge appends to the local audit log. Failures are reported, not
// fatal: the ledger-side merge already happened.
func recordMerge(cmd *cobra.Command, store service.Store, ids []int64, note string, newID int64) {
	if err := store.RecordMerge(cmd.Context(), ids, note, newID); err != nil {
		slog.Warn("failed to record merge locally", "error", err)
	}
}

// mergeDialogApp adapts MergeDialogModel to the tea.Model interface.
type mergeDialogApp struct {
	dialog tui.MergeDialogModel
}

func (a mergeDialogApp) Init() tea.Cmd {
	return a.dialog.Init()
}

func (a mergeDialogApp) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	a.dialog, cmd = a.dialog.Update(msg)
	return a, cmd
}

func (a mergeDialogApp) View() string {
	return a.dialog.View()
}
