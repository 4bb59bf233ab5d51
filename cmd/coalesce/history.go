package main

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent merges from the local audit log",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := initStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			records, err := store.GetMergeHistory(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				cmd.Println("No merges recorded.")
				return nil
			}

			for _, record := range records {
				idStrs := make([]string, len(record.SourceIDs))
				for i, id := range record.SourceIDs {
					idStrs[i] = "#" + strconv.FormatInt(id, 10)
				}

				line := record.MergedAt.Format("2006-01-02 15:04") + "  " + strings.Join(idStrs, ", ")
				if record.NewID != 0 {
					line += " -> #" + strconv.FormatInt(record.NewID, 10)
				}
				if record.Note != "" {
					line += "  (" + record.Note + ")"
				}
				cmd.Println(line)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of entries to show")

	return cmd
}
