package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve profiles and scenario evaluations over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != "" {
				cfg.Port = port
			}

			engine, stats, _, err := newEngine(cfg)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(commandContext(cmd))
			defer cancel()

			stats.StartCacheCleanup(ctx)
			engine.StartRunCleanup(ctx, time.Hour, cfg.RunMaxAge)

			if cfg.LeagueStats.BaseURL != "" {
				checkCtx, checkCancel := context.WithTimeout(ctx, 10*time.Second)
				if err := stats.ValidateSource(checkCtx, time.Now().Year()-1); err != nil {
					log.Warn().Err(err).Msg("League stats source validation failed, profiles will use default contact rates")
				} else {
					log.Info().Str("url", cfg.LeagueStats.BaseURL).Msg("League stats source initialized")
				}
				checkCancel()
			}

			server := NewServer(cfg, engine, stats)
			server.StartLimiterCleanup(ctx, time.Minute, 10*time.Minute)

			// Graceful shutdown
			go func() {
				sigChan := make(chan os.Signal, 1)
				signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
				<-sigChan

				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer shutdownCancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					log.Error().Err(err).Msg("Server shutdown failed")
				}
				log.Info().Msg("Server shutdown complete")
			}()

			if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "Port to listen on (default from config)")
	return cmd
}
