package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/domain"
)

const datasetColumns = `id, experiment_type_id, data_name, file_name, row_count, upload_time,
	is_historical, status, table_name`

// DatasetRepository handles PostgreSQL operations for dataset metadata
type DatasetRepository struct {
	db *sql.DB
}

// NewDatasetRepository creates a new DatasetRepository
func NewDatasetRepository(db *sql.DB) *DatasetRepository {
	return &DatasetRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDataset(s rowScanner) (*domain.ExperimentDataset, error) {
	var d domain.ExperimentDataset
	if err := s.Scan(&d.ID, &d.ExperimentTypeID, &d.DataName, &d.FileName, &d.RowCount,
		&d.UploadTime, &d.IsHistorical, &d.Status, &d.TableName); err != nil {
		return nil, err
	}
	return &d, nil
}

// ListActive returns the active datasets of a type, newest upload first
func (r *DatasetRepository) ListActive(ctx context.Context, typeID int64) ([]domain.ExperimentDataset, error) {
	return r.list(ctx, `
		SELECT `+datasetColumns+`
		FROM experiment_data
		WHERE experiment_type_id = $1 AND status = 'active'
		ORDER BY upload_time DESC, id DESC
	`, typeID)
}

// ListHistorical returns the active datasets of a type flagged as historical, by id
func (r *DatasetRepository) ListHistorical(ctx context.Context, typeID int64) ([]domain.ExperimentDataset, error) {
	return r.list(ctx, `
		SELECT `+datasetColumns+`
		FROM experiment_data
		WHERE experiment_type_id = $1 AND status = 'active' AND is_historical
		ORDER BY id
	`, typeID)
}

// ListAll returns every dataset of a type regardless of status
func (r *DatasetRepository) ListAll(ctx context.Context, typeID int64) ([]domain.ExperimentDataset, error) {
	return r.list(ctx, `
		SELECT `+datasetColumns+`
		FROM experiment_data
		WHERE experiment_type_id = $1
		ORDER BY id
	`, typeID)
}

func (r *DatasetRepository) list(ctx context.Context, query string, args ...any) ([]domain.ExperimentDataset, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query datasets: %w", err)
	}
	defer rows.Close()

	out := []domain.ExperimentDataset{}
	for rows.Next() {
		d, err := scanDataset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dataset: %w", err)
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating datasets: %w", err)
	}
	return out, nil
}

// Get returns one dataset
func (r *DatasetRepository) Get(ctx context.Context, id int64) (*domain.ExperimentDataset, error) {
	d, err := scanDataset(r.db.QueryRowContext(ctx, `
		SELECT `+datasetColumns+`
		FROM experiment_data
		WHERE id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrDatasetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}
	return d, nil
}

// Create inserts dataset metadata and fills in its id and upload time
func (r *DatasetRepository) Create(ctx context.Context, d *domain.ExperimentDataset) error {
	if d.Status == "" {
		d.Status = domain.StatusProcessing
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO experiment_data
			(experiment_type_id, data_name, file_name, row_count, is_historical, status, table_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, upload_time
	`, d.ExperimentTypeID, d.DataName, d.FileName, d.RowCount, d.IsHistorical, d.Status, d.TableName,
	).Scan(&d.ID, &d.UploadTime)
	if err != nil {
		return fmt.Errorf("failed to create dataset: %w", err)
	}
	return nil
}

// SetStatus moves a dataset through processing/active/failed
func (r *DatasetRepository) SetStatus(ctx context.Context, id int64, status string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE experiment_data SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update dataset status: %w", err)
	}
	return affectedOne(res, domain.ErrDatasetNotFound)
}

// SetHistorical sets the historical flag and returns the updated dataset
func (r *DatasetRepository) SetHistorical(ctx context.Context, id int64, historical bool) (*domain.ExperimentDataset, error) {
	d, err := scanDataset(r.db.QueryRowContext(ctx, `
		UPDATE experiment_data
		SET is_historical = $2
		WHERE id = $1
		RETURNING `+datasetColumns, id, historical))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrDatasetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update historical flag: %w", err)
	}
	return d, nil
}

// Delete removes dataset metadata
func (r *DatasetRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM experiment_data WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}
	return affectedOne(res, domain.ErrDatasetNotFound)
}

func affectedOne(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
