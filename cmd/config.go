package cmd

import (
	"fmt"

	"github.com/scottzero/facts-that-arent-fun-at-all/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the config file path and effective settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(flagOverrides())
		if err != nil {
			return err
		}

		path := flagConfig
		if path == "" {
			path = config.DefaultConfigPath()
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("encoding config: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "# config: %s\n", path)
		fmt.Fprintf(out, "# log:    %s\n", cfg.LogPath())
		fmt.Fprint(out, string(data))
		return nil
	},
}
