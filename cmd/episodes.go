package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var (
	episodesLimit  int
	episodesOffset int
)

var episodesCmd = &cobra.Command{
	Use:   "episodes",
	Short: "List recent episode ids from the configured source",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initPipeline(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		ids, err := env.Source.ListRecent(cmd.Context(), episodesOffset, episodesLimit)
		if err != nil {
			return eris.Wrap(err, "list episodes")
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	},
}

func init() {
	episodesCmd.Flags().IntVar(&episodesLimit, "limit", 50, "max number of episode ids")
	episodesCmd.Flags().IntVar(&episodesOffset, "offset", 0, "offset into the show history")
	rootCmd.AddCommand(episodesCmd)
}
