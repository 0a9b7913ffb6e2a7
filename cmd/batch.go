package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/readlist/readlist-cli/internal/extract"
)

var (
	batchSize        int
	batchOffset      int
	batchForce       bool
	batchConcurrency int
	batchDelayMs     int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Process a page of recent episodes through the pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		ids, err := env.Source.ListRecent(ctx, batchOffset, batchSize)
		if err != nil {
			return eris.Wrap(err, "list episodes")
		}
		if len(ids) == 0 {
			zap.L().Info("no episodes in range",
				zap.Int("offset", batchOffset),
				zap.Int("limit", batchSize),
			)
			return nil
		}

		concurrency := cfg.Batch.Concurrency
		if batchConcurrency > 0 {
			concurrency = batchConcurrency
		}
		delayMs := cfg.Batch.DelayMs
		if batchDelayMs > 0 {
			delayMs = batchDelayMs
		}

		zap.L().Info("processing batch",
			zap.Int("episodes", len(ids)),
			zap.Int("concurrency", concurrency),
		)

		sum := env.Coordinator.ProcessBatch(ctx, env.Source, ids, extract.BatchOptions{
			Concurrency: concurrency,
			Delay:       time.Duration(delayMs) * time.Millisecond,
			Force:       batchForce,
		})

		if sum.Failed > 0 {
			return eris.Errorf("batch finished with %d failed episodes", sum.Failed)
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().IntVar(&batchSize, "limit", 50, "max number of episodes to process")
	batchCmd.Flags().IntVar(&batchOffset, "offset", 0, "episode offset into the show history")
	batchCmd.Flags().BoolVar(&batchForce, "force", false, "reprocess episodes with success records")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "worker pool size (default from config)")
	batchCmd.Flags().IntVar(&batchDelayMs, "delay-ms", 0, "pause between dispatches in milliseconds")
	rootCmd.AddCommand(batchCmd)
}
