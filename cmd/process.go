package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/readlist/readlist-cli/internal/extract"
)

var processForce bool

var processCmd = &cobra.Command{
	Use:   "process <episode-id>",
	Short: "Process one episode and print the extraction outcome",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		ep, err := env.Source.Fetch(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "fetch episode")
		}

		out, err := env.Coordinator.Process(ctx, *ep, processForce)
		if err != nil {
			return eris.Wrap(err, "process episode")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(processOutput(out))
	},
}

func processOutput(out *extract.Outcome) any {
	if out.Skipped {
		return map[string]any{"skipped": true, "record": out.Record}
	}
	return map[string]any{"record": out.Record, "result": out.Result}
}

func init() {
	processCmd.Flags().BoolVar(&processForce, "force", false, "reprocess even if a success record exists")
	rootCmd.AddCommand(processCmd)
}
