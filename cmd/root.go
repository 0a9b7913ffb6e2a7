package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/readlist/readlist-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "readlist",
	Short: "Book recommendation extraction pipeline",
	Long:  "Fetches podcast episodes, locates the book recommendation section in the show notes, extracts title/author pairs with a deterministic parser, and escalates low-confidence parses to a language model.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
