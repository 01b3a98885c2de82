package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dbquery-gateway/gateway/internal/observability"
	"github.com/dbquery-gateway/gateway/internal/server"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the query gateway HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			log.Error().Err(err).Msg("failed to load configuration")
			os.Exit(exitConfigError)
		}

		observability.ConfigureLogging(cfg.Observability.LogLevel, cfg.Observability.LogFormat)

		srv, err := server.New(cfg)
		if err != nil {
			log.Error().Err(err).Msg("failed to start server")
			os.Exit(exitConfigError)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.Info().Str("host", cfg.Host).Int("port", cfg.Port).Msg("dbgateway listening")
		if err := srv.Run(ctx); err != nil {
			log.Error().Err(err).Msg("server stopped with error")
			os.Exit(exitTransientError)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
