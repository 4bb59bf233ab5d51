package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/viper"

	"github.com/joshsymonds/coalesce/internal/api"
	"github.com/joshsymonds/coalesce/internal/config"
	"github.com/joshsymonds/coalesce/internal/service"
	"github.com/joshsymonds/coalesce/internal/storage"
)

// initLedger builds the ledger API client from config.
func initLedger() (service.Ledger, error) {
	baseURL := viper.GetString("ledger.url")
	if baseURL == "" {
		return nil, fmt.Errorf("ledger URL is required (set ledger.url or --ledger-url)")
	}

	return api.NewClient(api.Config{
		BaseURL: baseURL,
		Token:   viper.GetString("ledger.token"),
		Timeout: viper.GetDuration("ledger.timeout"),
	})
}

// initStore opens the local cache database with proper path expansion.
func initStore(ctx context.Context) (service.Store, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/coalesce/coalesce.db"
	}
	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// parseIDs converts command arguments to transaction IDs.
func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid transaction ID %q: %w", arg, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
