package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/domain"
	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/ingest"
	"github.com/GoSim-25-26J-441/envelope-analysis/internal/logging"
)

const uploadTimeLayout = "2006-01-02 15:04:05"

// RegistryService manages uploaded datasets of a type
type RegistryService struct {
	types       TypeStore
	datasets    DatasetStore
	rows        RowStore
	cache       EnvelopeCache
	metrics     *Metrics
	previewRows int
	now         func() time.Time
}

// NewRegistryService creates a new RegistryService
func NewRegistryService(types TypeStore, datasets DatasetStore, rows RowStore, cache EnvelopeCache, metrics *Metrics, previewRows int) *RegistryService {
	if previewRows <= 0 {
		previewRows = 10
	}
	return &RegistryService{
		types:       types,
		datasets:    datasets,
		rows:        rows,
		cache:       cache,
		metrics:     metrics,
		previewRows: previewRows,
		now:         time.Now,
	}
}

// List returns the active datasets of a type, newest first, with statistics
func (s *RegistryService) List(ctx context.Context, typeID int64) (*domain.DatasetList, error) {
	et, err := s.types.Get(ctx, typeID)
	if err != nil {
		return nil, err
	}
	datasets, err := s.datasets.ListActive(ctx, typeID)
	if err != nil {
		return nil, err
	}

	out := &domain.DatasetList{ExperimentType: et, ExperimentData: nonNilDatasets(datasets)}
	for i := range out.ExperimentData {
		d := &out.ExperimentData[i]
		d.UploadTimeFormatted = d.UploadTime.Format(uploadTimeLayout)
		out.Statistics.TotalCount++
		out.Statistics.TotalRows += d.RowCount
		if d.IsHistorical {
			out.Statistics.HistoricalCount++
		}
		if d.Status == domain.StatusActive {
			out.Statistics.ActiveCount++
		}
	}
	return out, nil
}

// Info returns a dataset plus what the row store holds for it
func (s *RegistryService) Info(ctx context.Context, id int64) (*domain.DatasetInfo, error) {
	d, err := s.datasets.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	info, err := s.rows.Info(ctx, d.TableName)
	if err != nil {
		return nil, err
	}
	d.UploadTimeFormatted = d.UploadTime.Format(uploadTimeLayout)
	return &domain.DatasetInfo{ExperimentDataset: *d, StoreInfo: info}, nil
}

// SetHistorical flags a dataset in or out of the envelope corpus. Setting the
// current value again is a no-op apart from the cache bump.
func (s *RegistryService) SetHistorical(ctx context.Context, id int64, historical bool) (*domain.ExperimentDataset, error) {
	d, err := s.datasets.SetHistorical(ctx, id, historical)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Invalidate(ctx, d.ExperimentTypeID); err != nil {
		logging.NewLogger(ctx).LogError("SetHistorical", err)
	}
	return d, nil
}

// Delete permanently removes a dataset and its rows
func (s *RegistryService) Delete(ctx context.Context, id int64) error {
	d, err := s.datasets.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.rows.Drop(ctx, d.TableName); err != nil {
		return err
	}
	if err := s.datasets.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.cache.Invalidate(ctx, d.ExperimentTypeID); err != nil {
		logging.NewLogger(ctx).LogError("DeleteDataset", err)
	}
	return nil
}

// Preview parses the first rows of a file and validates it against the type.
// Nothing is stored.
func (s *RegistryService) Preview(ctx context.Context, typeID int64, filename string, r io.Reader) (*domain.FilePreview, error) {
	et, err := s.types.Get(ctx, typeID)
	if err != nil {
		return nil, err
	}
	p, err := ingest.Preview(filename, r, et, s.previewRows)
	if err != nil {
		return nil, asFileError(err)
	}
	return p, nil
}

// Upload stores a complete dataset. It is not historical until flagged.
func (s *RegistryService) Upload(ctx context.Context, typeID int64, filename string, r io.Reader, dataName string) (d *domain.ExperimentDataset, err error) {
	defer func() { s.metrics.recordUpload("dataset", err) }()

	dataName = strings.TrimSpace(dataName)
	if dataName == "" {
		return nil, validationError("data name is required")
	}
	et, err := s.types.Get(ctx, typeID)
	if err != nil {
		return nil, err
	}

	frame, err := parseFrame(filename, r, et, ingest.RequireAllColumns)
	if err != nil {
		return nil, err
	}

	d = &domain.ExperimentDataset{
		ExperimentTypeID: typeID,
		DataName:         dataName,
		FileName:         filename,
		RowCount:         frame.Len(),
		Status:           domain.StatusProcessing,
		TableName:        newTableName(datasetTablePrefix, s.now()),
	}
	if err := s.datasets.Create(ctx, d); err != nil {
		return nil, err
	}

	logger := logging.NewLogger(ctx)
	if err := s.rows.Write(ctx, d.TableName, timeColumn(et), frame); err != nil {
		if serr := s.datasets.SetStatus(ctx, d.ID, domain.StatusFailed); serr != nil {
			logger.LogError("Upload", serr)
		}
		if derr := s.rows.Drop(ctx, d.TableName); derr != nil {
			logger.LogError("Upload", derr)
		}
		return nil, fmt.Errorf("failed to store rows: %w", err)
	}
	if err := s.datasets.SetStatus(ctx, d.ID, domain.StatusActive); err != nil {
		return nil, err
	}
	d.Status = domain.StatusActive

	if err := s.cache.Invalidate(ctx, typeID); err != nil {
		logger.LogError("Upload", err)
	}
	logger.LogInfof("Upload", "stored dataset %d with %d rows", d.ID, d.RowCount)
	return d, nil
}

// parseFrame reads, validates and cleans an uploaded file. Under RequireAnyColumn
// only the schema columns the file carries are kept.
func parseFrame(filename string, r io.Reader, et *domain.ExperimentType, req ingest.Requirement) (*domain.Frame, error) {
	table, err := ingest.ReadTable(filename, r, 0)
	if err != nil {
		return nil, asFileError(err)
	}
	v := ingest.Validate(table, et, req)
	if !v.IsValid {
		return nil, validationError("%s", v.Message)
	}

	cols := et.DataColumns
	if req == ingest.RequireAnyColumn {
		cols = ingest.PresentDataColumns(table, et)
	}
	frame, err := ingest.ToFrame(table, timeColumn(et), cols)
	if err != nil {
		return nil, err
	}
	if frame.Len() == 0 {
		return nil, validationError("file contains no complete numeric rows")
	}
	return frame, nil
}

// asFileError reports unreadable file content as a validation failure.
func asFileError(err error) error {
	if errors.Is(err, domain.ErrUnsupportedFile) || errors.Is(err, domain.ErrValidation) {
		return err
	}
	return validationError("failed to read file: %v", err)
}
