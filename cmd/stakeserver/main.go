package main

import (
	"os"

	"github.com/generativelabs/stakeserver/cmd/server"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:           "stakeserver",
		Short:         "Staking plans, stakes and reward claims over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"config file (default ./stake-server.yml)")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := server.LoadConfig(configPath)
			if err != nil {
				return err
			}
			return server.Run(config)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create the tables on the configured SQL store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := server.LoadConfig(configPath)
			if err != nil {
				return err
			}
			server.SetupLogger(config)
			if err := server.Migrate(config); err != nil {
				return err
			}
			log.Info().Str("storage", config.Storage.Driver).Msg("schema is up to date")
			return nil
		},
	})

	if err := root.Execute(); err != nil {
		log.Error().Msgf("❌ %s", err)
		os.Exit(1)
	}
}
