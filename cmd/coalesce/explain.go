package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/joshsymonds/coalesce/internal/explain"
)

func explainCmd() *cobra.Command {
	var noCache bool

	cmd := &cobra.Command{
		Use:   "explain <id>",
		Short: "Show why a transaction was categorized the way it was",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			id := ids[0]

			ledger, err := initLedger()
			if err != nil {
				return err
			}

			store, err := initStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if !noCache {
				text, found, cacheErr := store.GetExplanation(cmd.Context(), id)
				if cacheErr != nil {
					slog.Debug("explanation cache lookup failed", "error", cacheErr)
				}
				if found {
					cmd.Println(text)
					return nil
				}
			}

			cache := explain.NewCache(id, ledger,
				explain.WithStore(store),
				explain.WithLogger(slog.Default()))
			cache.EnsureFetched(cmd.Context())

			cmd.Println(cache.Text())
			return nil
		},
	}

	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the local explanation cache")

	return cmd
}
