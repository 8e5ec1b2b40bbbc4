package main

import (
	"fmt"

	"github.com/layer-3/walletauth/config"
	"github.com/layer-3/walletauth/internal/app"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var sweepCmd = cobra.Command{
	Use:   "sweep",
	Short: "Delete expired challenges, sessions and revocations once",
	Long:  "Delete expired records from the configured store. Redis expires keys on its own, so this is a no-op there.",
	Run: func(cmd *cobra.Command, args []string) {
		execWithConfig(cmd, sweep)
	},
}

func sweep(cmd *cobra.Command, cfg *config.Config, log *logrus.Logger) {
	a, err := app.New(cmd.Context(), cfg, log)
	if err != nil {
		log.WithError(err).Fatal("unable to build application")
	}
	defer a.Close()

	removed, err := a.Sweeper.SweepOnce(cmd.Context())
	if err != nil {
		log.WithError(err).Error("sweep finished with errors")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired records\n", removed)
}
