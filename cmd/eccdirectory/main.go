// Package main provides the entry point for the ECC directory CLI.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/andygrunwald/ecc-directory/internal/api/ecc"
	"github.com/andygrunwald/ecc-directory/internal/config"
	"github.com/andygrunwald/ecc-directory/internal/connector"
)

var (
	// Version is set at build time.
	Version = "dev"
	// Commit is set at build time.
	Commit = "none"
	// BuildDate is set at build time.
	BuildDate = "unknown"
)

var cfg *config.Config

func main() {
	cfg = config.DefaultConfig()
	cfg.LoadFromEnv()
	connector.UserAgent = "eccdirectory/" + Version

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eccdirectory",
		Short: "ECC Directory - Estimated Cost of Care lookups from the command line",
		Long: `ECC Directory queries the CarePass Estimated Cost of Care API for medical
and dental procedure cost estimates.

Features:
  - Cost lookups by procedure code and zip code or coordinates
  - CPT / CDT code listings and procedure categories
  - Daily recording of watched lookups into PostgreSQL
  - Prometheus metrics endpoint
  - Status endpoint for operational visibility`,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&cfg.APIKey, "api-key", cfg.APIKey, "ECC API key")
	cmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (json, console)")
	cmd.PersistentFlags().DurationVar(&cfg.RequestTimeout, "request-timeout", cfg.RequestTimeout, "Timeout for a single ECC request")
	cmd.PersistentFlags().StringVar(&cfg.PostgresDSN, "postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string")
	cmd.PersistentFlags().BoolVar(&cfg.StoreRawResponse, "store-raw-response", cfg.StoreRawResponse, "Store the JSON of each recorded estimate in database")
	cmd.PersistentFlags().StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP server address for /metrics, /status")

	// Add subcommands
	cmd.AddCommand(costCmd("medical"))
	cmd.AddCommand(costCmd("dental"))
	cmd.AddCommand(codesCmd())
	cmd.AddCommand(categoriesCmd())
	cmd.AddCommand(recordCmd())
	cmd.AddCommand(runCmd())
	cmd.AddCommand(versionCmd())

	return cmd
}

func setupLogger() zerolog.Logger {
	var logger zerolog.Logger

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Logs go to stderr so stdout stays parseable JSON
	if cfg.LogFormat == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stderr).
			With().
			Timestamp().
			Logger()
	}

	return logger
}

// newClient wires the HTTP connector into an ECC client.
func newClient(logger zerolog.Logger) (*ecc.Client, *connector.Connector) {
	conn := connector.New(cfg.RequestTimeout, logger)
	return ecc.New(cfg.APIKey, conn, logger), conn
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
