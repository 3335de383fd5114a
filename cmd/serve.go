package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/eip3074-protection/pkg/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs the scenario on a schedule and serves metrics and results.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := initCommon()
		if err != nil {
			return err
		}

		srv, err := server.NewServer(cmd.Context(), log, namespace, cfg, cmd.OutOrStdout())
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		if err := srv.Start(cmd.Context()); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}

		log.Info("eip3074-protection server exited - cya!")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
