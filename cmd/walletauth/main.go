package main

import (
	"io"
	"os"

	"github.com/layer-3/walletauth/config"
	"github.com/layer-3/walletauth/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var configFile = ""

var rootCmd = cobra.Command{
	Use:   "walletauth",
	Short: "Wallet challenge-response authentication server",
	Run: func(cmd *cobra.Command, args []string) {
		execWithConfig(cmd, serve)
	},
}

func main() {
	rootCmd.AddCommand(&serveCmd, &sweepCmd, signCmd(), keygenCmd())
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "the env file to load")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func execWithConfig(cmd *cobra.Command, fn func(cmd *cobra.Command, cfg *config.Config, log *logrus.Logger)) {
	cfg, err := config.Load(configFile)
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %+v", err)
	}

	log, closer, err := logging.New(cfg.Logging)
	if err != nil {
		logrus.Fatalf("Failed to configure logging: %+v", err)
	}
	defer closeQuietly(closer)

	fn(cmd, cfg, log)
}

func closeQuietly(c io.Closer) {
	_ = c.Close()
}
