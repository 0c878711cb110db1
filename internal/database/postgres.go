// Package database provides PostgreSQL database operations for recorded cost estimates.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"

	"github.com/andygrunwald/ecc-directory/internal/models"
)

// DB wraps the PostgreSQL database connection and provides operations for cost estimates.
type DB struct {
	db     *sql.DB
	logger zerolog.Logger
}

// New creates a new database connection.
func New(dsn string, logger zerolog.Logger) (*DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database connection: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return NewFromDB(db, logger), nil
}

// NewFromDB wraps an already opened database handle.
func NewFromDB(db *sql.DB, logger zerolog.Logger) *DB {
	return &DB{
		db:     db,
		logger: logger.With().Str("component", "database").Logger(),
	}
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks if the database connection is alive.
func (d *DB) Ping() error {
	return d.db.Ping()
}

// InsertEstimate inserts a cost estimate, replacing the pricing of an existing
// row for the same lookup, provider, address, zip and day.
func (d *DB) InsertEstimate(ctx context.Context, e models.Estimate, storeRecordJSON bool) error {
	query := `
		INSERT INTO cost_estimates (family, code, location, provider_name, address, zip, lowest, average, highest, currency, estimate_date, record_json, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (family, code, location, provider_name, address, zip, estimate_date)
		DO UPDATE SET
			lowest = EXCLUDED.lowest,
			average = EXCLUDED.average,
			highest = EXCLUDED.highest,
			record_json = EXCLUDED.record_json,
			fetched_at = EXCLUDED.fetched_at
	`

	var recordJSON []byte
	if storeRecordJSON {
		recordJSON = e.RecordJSON
	}

	_, err := d.db.ExecContext(ctx, query,
		string(e.Family),
		e.Code,
		e.Location,
		e.ProviderName,
		e.Address,
		e.Zip,
		e.Lowest,
		e.Average,
		e.Highest,
		e.Currency,
		e.Date.Format("2006-01-02"),
		recordJSON,
		e.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting estimate: %w", err)
	}

	d.logger.Debug().
		Str("family", string(e.Family)).
		Str("code", e.Code).
		Str("location", e.Location).
		Str("provider_name", e.ProviderName).
		Str("address", e.Address).
		Float64("average", e.Average).
		Msg("inserted estimate record")

	return nil
}

// ExistsForDate checks if a row with the same lookup, provider name, address,
// zip and date as e is already stored.
func (d *DB) ExistsForDate(ctx context.Context, e models.Estimate) (bool, error) {
	query := `
		SELECT COUNT(*) FROM cost_estimates
		WHERE family = $1 AND code = $2 AND location = $3 AND provider_name = $4
		AND address = $5 AND zip = $6 AND estimate_date = $7
	`

	var count int
	err := d.db.QueryRowContext(ctx, query,
		string(e.Family),
		e.Code,
		e.Location,
		e.ProviderName,
		e.Address,
		e.Zip,
		e.Date.Format("2006-01-02"),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking existence: %w", err)
	}

	return count > 0, nil
}

// GetTotalEstimatesCount returns the total number of estimate records in the database.
func (d *DB) GetTotalEstimatesCount(ctx context.Context) (int64, error) {
	var count int64
	err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cost_estimates").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting estimates: %w", err)
	}
	return count, nil
}
