package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Never print credentials.
		redacted := *cfg
		redacted.Anthropic.Key = redact(cfg.Anthropic.Key)
		redacted.Spotify.ClientSecret = redact(cfg.Spotify.ClientSecret)

		out, err := yaml.Marshal(&redacted)
		if err != nil {
			return eris.Wrap(err, "marshal config")
		}
		_, err = os.Stdout.Write(out)
		return err
	},
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}

func init() {
	rootCmd.AddCommand(configCmd)
}
