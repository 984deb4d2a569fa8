package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/domain"
	"github.com/lib/pq"
)

// SettingsRepository handles PostgreSQL operations for envelope settings
type SettingsRepository struct {
	db *sql.DB
}

// NewSettingsRepository creates a new SettingsRepository
func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the settings of a type, or nil when none were saved
func (r *SettingsRepository) Get(ctx context.Context, typeID int64) (*domain.EnvelopeSettings, error) {
	var (
		s          domain.EnvelopeSettings
		start, end sql.NullFloat64
		updatedAt  sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, experiment_type_id, selected_columns, time_range_start, time_range_end, updated_at
		FROM envelope_settings
		WHERE experiment_type_id = $1
	`, typeID).Scan(&s.ID, &s.ExperimentTypeID, pq.Array(&s.SelectedColumns), &start, &end, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get envelope settings: %w", err)
	}

	if start.Valid {
		s.TimeRangeStart = &start.Float64
	}
	if end.Valid {
		s.TimeRangeEnd = &end.Float64
	}
	if updatedAt.Valid {
		s.UpdatedAt = &updatedAt.Time
	}
	if s.SelectedColumns == nil {
		s.SelectedColumns = []string{}
	}
	return &s, nil
}

// Upsert stores the selected columns of a type, overwriting any previous record
func (r *SettingsRepository) Upsert(ctx context.Context, typeID int64, columns []string) (*domain.EnvelopeSettings, error) {
	s := domain.EnvelopeSettings{
		ExperimentTypeID: typeID,
		SelectedColumns:  columns,
	}
	var updatedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO envelope_settings (experiment_type_id, selected_columns, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (experiment_type_id)
		DO UPDATE SET selected_columns = EXCLUDED.selected_columns, updated_at = now()
		RETURNING id, updated_at
	`, typeID, pq.Array(columns)).Scan(&s.ID, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to save envelope settings: %w", err)
	}
	if updatedAt.Valid {
		s.UpdatedAt = &updatedAt.Time
	}
	return &s, nil
}
