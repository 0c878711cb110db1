package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/andygrunwald/ecc-directory/internal/config"
	"github.com/andygrunwald/ecc-directory/internal/database"
	"github.com/andygrunwald/ecc-directory/internal/http"
	"github.com/andygrunwald/ecc-directory/internal/recorder"
	"github.com/andygrunwald/ecc-directory/internal/scheduler"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the continuous recording service",
		Long:  "Starts the recorder with an internal scheduler that records the watch list daily at the specified hour.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()

			if cfg.PostgresDSN == "" {
				return fmt.Errorf("--postgres-dsn is required")
			}

			if cfg.RecordHour < 0 || cfg.RecordHour > 23 {
				return fmt.Errorf("--record-hour must be between 0 and 23")
			}

			lookups, err := config.ParseWatchList(cfg.Watch)
			if err != nil {
				return fmt.Errorf("parsing --watch: %w", err)
			}
			if len(lookups) == 0 {
				return fmt.Errorf("--watch is required")
			}

			logger.Info().
				Str("version", Version).
				Str("commit", Commit).
				Str("buildDate", BuildDate).
				Str("httpAddr", cfg.HTTPAddr).
				Int("recordHour", cfg.RecordHour).
				Int("lookups", len(lookups)).
				Msg("starting ECC directory recorder")

			// Connect to database
			db, err := database.New(cfg.PostgresDSN, logger)
			if err != nil {
				return fmt.Errorf("connecting to database: %w", err)
			}
			defer db.Close()

			if err := db.EnsureSchema(cmd.Context()); err != nil {
				return err
			}

			client, conn := newClient(logger)
			rec := recorder.New(client, db, cfg.StoreRawResponse, logger)
			for _, l := range lookups {
				rec.Watch(l)
			}

			sched := scheduler.New(rec, cfg.RecordHour, logger)
			httpServer := http.NewServer(cfg.HTTPAddr, rec, sched, db, logger)

			// Wire Prometheus metrics
			rec.SetPrometheusMetrics(httpServer.Metrics())
			conn.SetObserver(httpServer.Metrics())

			// Setup signal handling
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			go func() {
				if err := httpServer.Start(); err != nil {
					logger.Error().Err(err).Msg("HTTP server error")
					cancel()
				}
			}()

			go func() {
				if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error().Err(err).Msg("scheduler error")
					cancel()
				}
			}()

			select {
			case sig := <-sigCh:
				logger.Info().Str("signal", sig.String()).Msg("received signal, shutting down")
				cancel()
			case <-ctx.Done():
			}

			// Graceful shutdown
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer shutdownCancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("HTTP server shutdown error")
			}

			logger.Info().Msg("shutdown complete")
			return nil
		},
	}

	cmd.Flags().IntVar(&cfg.RecordHour, "record-hour", cfg.RecordHour, "Hour of day (0-23) to record")
	cmd.Flags().StringVar(&cfg.Watch, "watch", cfg.Watch, "Comma-separated lookups (family:code:zip or family:code:lat;lng)")

	return cmd
}
