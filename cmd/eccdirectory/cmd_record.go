package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andygrunwald/ecc-directory/internal/config"
	"github.com/andygrunwald/ecc-directory/internal/database"
	"github.com/andygrunwald/ecc-directory/internal/recorder"
)

func recordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Run a one-time recording of the watch list",
		Long:  "Fetches every watched lookup once and stores the returned estimates in PostgreSQL.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()

			if cfg.PostgresDSN == "" {
				return fmt.Errorf("--postgres-dsn is required")
			}

			lookups, err := config.ParseWatchList(cfg.Watch)
			if err != nil {
				return fmt.Errorf("parsing --watch: %w", err)
			}
			if len(lookups) == 0 {
				return fmt.Errorf("--watch is required")
			}

			logger.Info().
				Int("lookups", len(lookups)).
				Msg("running one-time recording")

			// Connect to database
			db, err := database.New(cfg.PostgresDSN, logger)
			if err != nil {
				return fmt.Errorf("connecting to database: %w", err)
			}
			defer db.Close()

			if err := db.EnsureSchema(cmd.Context()); err != nil {
				return err
			}

			client, _ := newClient(logger)
			rec := recorder.New(client, db, cfg.StoreRawResponse, logger)
			for _, l := range lookups {
				rec.Watch(l)
			}

			if err := rec.RecordAll(cmd.Context()); err != nil {
				return fmt.Errorf("recording: %w", err)
			}

			logger.Info().Msg("recording completed")
			return nil
		},
	}

	cmd.Flags().StringVar(&cfg.Watch, "watch", cfg.Watch, "Comma-separated lookups (family:code:zip or family:code:lat;lng)")

	return cmd
}
