package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/domain"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// TypeRepository handles PostgreSQL operations for experiment types
type TypeRepository struct {
	db *sql.DB
}

// NewTypeRepository creates a new TypeRepository
func NewTypeRepository(db *sql.DB) *TypeRepository {
	return &TypeRepository{db: db}
}

// List returns every experiment type ordered by id
func (r *TypeRepository) List(ctx context.Context) ([]domain.ExperimentType, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, time_column, data_columns, created_at
		FROM experiment_types
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list experiment types: %w", err)
	}
	defer rows.Close()

	out := []domain.ExperimentType{}
	for rows.Next() {
		var et domain.ExperimentType
		if err := rows.Scan(&et.ID, &et.Name, &et.Description, &et.TimeColumn,
			pq.Array(&et.DataColumns), &et.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan experiment type: %w", err)
		}
		out = append(out, et)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating experiment types: %w", err)
	}
	return out, nil
}

// Get returns one experiment type
func (r *TypeRepository) Get(ctx context.Context, id int64) (*domain.ExperimentType, error) {
	var et domain.ExperimentType
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, time_column, data_columns, created_at
		FROM experiment_types
		WHERE id = $1
	`, id).Scan(&et.ID, &et.Name, &et.Description, &et.TimeColumn, pq.Array(&et.DataColumns), &et.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTypeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get experiment type: %w", err)
	}
	return &et, nil
}

// Create inserts a new experiment type and fills in its id and creation time
func (r *TypeRepository) Create(ctx context.Context, et *domain.ExperimentType) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO experiment_types (name, description, time_column, data_columns)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, et.Name, et.Description, et.TimeColumn, pq.Array(et.DataColumns)).Scan(&et.ID, &et.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return domain.ErrDuplicateName
		}
		return fmt.Errorf("failed to create experiment type: %w", err)
	}
	return nil
}

// Delete removes an experiment type; datasets and settings cascade
func (r *TypeRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM experiment_types WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete experiment type: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return domain.ErrTypeNotFound
	}
	return nil
}
