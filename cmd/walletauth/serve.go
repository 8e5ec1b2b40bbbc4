package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/layer-3/walletauth/config"
	"github.com/layer-3/walletauth/internal/app"
	"github.com/layer-3/walletauth/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = cobra.Command{
	Use:  "serve",
	Long: "Start API server",
	Run: func(cmd *cobra.Command, args []string) {
		execWithConfig(cmd, serve)
	},
}

func serve(cmd *cobra.Command, cfg *config.Config, logger *logrus.Logger) {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logger.WithFields(logging.Fields(cfg.Logging))

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("unable to build application")
	}
	defer a.Close()

	go a.Sweeper.Run(ctx)

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("failed to shut down cleanly")
		}
	}()

	log.Infof("walletauth API started on: %s", cfg.HTTP.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("server stopped")
	}
	log.Info("walletauth API stopped")
}
