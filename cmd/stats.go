package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/readlist/readlist-cli/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print ledger statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		stats, err := st.Stats(cmd.Context())
		if err != nil {
			return eris.Wrap(err, "read stats")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the ledger schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		return st.Migrate(cmd.Context())
	},
}

// openStore opens the ledger and applies migrations without requiring the
// full pipeline configuration; stats and migrate work without API
// credentials.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func init() {
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(migrateCmd)
}
