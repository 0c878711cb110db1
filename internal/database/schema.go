package database

import (
	"context"
	"fmt"
)

const schema = `
	CREATE TABLE IF NOT EXISTS cost_estimates (
		id            BIGSERIAL PRIMARY KEY,
		family        TEXT             NOT NULL,
		code          TEXT             NOT NULL,
		location      TEXT             NOT NULL,
		provider_name TEXT             NOT NULL,
		address       TEXT             NOT NULL DEFAULT '',
		zip           TEXT             NOT NULL DEFAULT '',
		lowest        DOUBLE PRECISION NOT NULL,
		average       DOUBLE PRECISION NOT NULL,
		highest       DOUBLE PRECISION NOT NULL,
		currency      TEXT             NOT NULL DEFAULT '',
		estimate_date DATE             NOT NULL,
		record_json   JSONB,
		fetched_at    TIMESTAMPTZ      NOT NULL,
		created_at    TIMESTAMPTZ      NOT NULL DEFAULT now(),
		UNIQUE (family, code, location, provider_name, address, zip, estimate_date)
	)
`

// EnsureSchema creates the cost_estimates table if it does not exist yet.
func (d *DB) EnsureSchema(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
