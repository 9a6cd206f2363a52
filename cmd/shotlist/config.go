package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/keagan/shotlist/internal/config"
)

var writePath string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Config management commands",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		if writePath != "" {
			if err := cfg.Save(writePath); err != nil {
				return err
			}
			log.Info().Str("path", writePath).Msg("configuration written")
			return nil
		}

		data, err := cfg.Marshal()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func init() {
	configShowCmd.Flags().StringVar(&writePath, "write", "", "save the configuration to this path")
	configCmd.AddCommand(configShowCmd)
}
