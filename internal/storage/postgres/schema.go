package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS experiment_types (
		id           BIGSERIAL PRIMARY KEY,
		name         TEXT NOT NULL UNIQUE,
		description  TEXT NOT NULL DEFAULT '',
		time_column  TEXT NOT NULL DEFAULT 't',
		data_columns TEXT[] NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS experiment_data (
		id                 BIGSERIAL PRIMARY KEY,
		experiment_type_id BIGINT NOT NULL REFERENCES experiment_types(id) ON DELETE CASCADE,
		data_name          TEXT NOT NULL,
		file_name          TEXT NOT NULL DEFAULT '',
		row_count          INTEGER NOT NULL DEFAULT 0,
		upload_time        TIMESTAMPTZ NOT NULL DEFAULT now(),
		is_historical      BOOLEAN NOT NULL DEFAULT FALSE,
		status             TEXT NOT NULL DEFAULT 'processing',
		table_name         TEXT NOT NULL UNIQUE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_experiment_data_type_status
		ON experiment_data (experiment_type_id, status, upload_time DESC)`,
	`CREATE TABLE IF NOT EXISTS envelope_settings (
		id                 BIGSERIAL PRIMARY KEY,
		experiment_type_id BIGINT NOT NULL UNIQUE REFERENCES experiment_types(id) ON DELETE CASCADE,
		selected_columns   TEXT[] NOT NULL DEFAULT '{}',
		time_range_start   DOUBLE PRECISION,
		time_range_end     DOUBLE PRECISION,
		updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Migrate creates the metadata tables when they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
