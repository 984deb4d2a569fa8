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
	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/repository"
	"github.com/GoSim-25-26J-441/envelope-analysis/internal/logging"
)

const defaultComparisonFileName = "comparison_data.csv"

// SaveTempInput is the request to promote a temp dataset
type SaveTempInput struct {
	TempDataID string `json:"temp_data_id" binding:"required"`
	DataName   string `json:"data_name" binding:"required"`
	FileName   string `json:"file_name"`
}

// StagingService owns temp comparison datasets: staging, promotion and discard.
type StagingService struct {
	types    TypeStore
	datasets DatasetStore
	rows     RowStore
	temps    TempStore
	cache    EnvelopeCache
	metrics  *Metrics
	now      func() time.Time
}

// NewStagingService creates a new StagingService
func NewStagingService(types TypeStore, datasets DatasetStore, rows RowStore, temps TempStore, cache EnvelopeCache, metrics *Metrics) *StagingService {
	return &StagingService{
		types:    types,
		datasets: datasets,
		rows:     rows,
		temps:    temps,
		cache:    cache,
		metrics:  metrics,
		now:      time.Now,
	}
}

// Upload stages a file for comparison. The file needs the time column and at
// least one data column of the type.
func (s *StagingService) Upload(ctx context.Context, typeID int64, filename string, r io.Reader) (out *domain.TempComparisonDataset, err error) {
	defer func() { s.metrics.recordUpload("temp", err) }()

	et, err := s.types.Get(ctx, typeID)
	if err != nil {
		return nil, err
	}
	frame, err := parseFrame(filename, r, et, ingest.RequireAnyColumn)
	if err != nil {
		return nil, err
	}

	now := s.now()
	id := newTableName(domain.TempTablePrefix, now)
	if err := s.rows.Write(ctx, id, timeColumn(et), frame); err != nil {
		return nil, fmt.Errorf("failed to store temp rows: %w", err)
	}

	entry := &repository.TempEntry{
		TempDataID:       id,
		ExperimentTypeID: typeID,
		FileName:         filename,
		Columns:          frame.Order,
		RowCount:         frame.Len(),
		TimeRange:        frame.TimeRange(),
		CreatedAt:        now,
	}
	if err := s.temps.Put(ctx, entry); err != nil {
		if derr := s.rows.Drop(ctx, id); derr != nil {
			logging.NewLogger(ctx).LogError("UploadTemp", derr)
		}
		return nil, err
	}

	s.metrics.RecordTempEvent("staged")
	logging.NewLogger(ctx).LogInfof("UploadTemp", "staged %s with %d rows", id, entry.RowCount)
	return entry.Descriptor(), nil
}

// Save promotes a temp dataset to a regular one. The temp id is invalid afterwards.
func (s *StagingService) Save(ctx context.Context, typeID int64, in SaveTempInput) (*domain.ExperimentDataset, error) {
	dataName := strings.TrimSpace(in.DataName)
	if dataName == "" {
		return nil, validationError("data name is required")
	}
	fileName := strings.TrimSpace(in.FileName)
	if fileName == "" {
		fileName = defaultComparisonFileName
	}

	entry, err := lookupTemp(ctx, s.temps, typeID, in.TempDataID)
	if err != nil {
		return nil, err
	}

	logger := logging.NewLogger(ctx)
	table := strings.TrimPrefix(entry.TempDataID, "temp_")
	if err := s.rows.Rename(ctx, entry.TempDataID, table); err != nil {
		if errors.Is(err, domain.ErrTempNotFound) {
			if derr := s.temps.Delete(ctx, entry.TempDataID); derr != nil {
				logger.LogError("SaveTemp", derr)
			}
		}
		return nil, err
	}

	d := &domain.ExperimentDataset{
		ExperimentTypeID: typeID,
		DataName:         dataName,
		FileName:         fileName,
		RowCount:         entry.RowCount,
		Status:           domain.StatusActive,
		TableName:        table,
	}
	if err := s.datasets.Create(ctx, d); err != nil {
		if rerr := s.rows.Rename(ctx, table, entry.TempDataID); rerr != nil {
			logger.LogError("SaveTemp", rerr)
		}
		return nil, err
	}

	if err := s.temps.Delete(ctx, entry.TempDataID); err != nil {
		logger.LogError("SaveTemp", err)
	}
	if err := s.cache.Invalidate(ctx, typeID); err != nil {
		logger.LogError("SaveTemp", err)
	}
	s.metrics.RecordTempEvent("promoted")
	logger.LogInfof("SaveTemp", "promoted %s to dataset %d", entry.TempDataID, d.ID)
	return d, nil
}

// Delete discards a temp dataset. Discarding an id that is already gone succeeds.
func (s *StagingService) Delete(ctx context.Context, typeID int64, tempID string) error {
	if !ValidTempID(tempID) {
		return validationError("invalid temp data id")
	}
	entry, err := s.temps.Get(ctx, tempID)
	switch {
	case errors.Is(err, domain.ErrTempNotFound):
	case err != nil:
		return err
	case entry.ExperimentTypeID != typeID:
		return domain.ErrTempNotFound
	}

	if err := s.rows.Drop(ctx, tempID); err != nil {
		return err
	}
	if err := s.temps.Delete(ctx, tempID); err != nil {
		return err
	}
	s.metrics.RecordTempEvent("discarded")
	return nil
}

// lookupTemp resolves a temp id that is registered for typeID.
func lookupTemp(ctx context.Context, temps TempStore, typeID int64, tempID string) (*repository.TempEntry, error) {
	if strings.TrimSpace(tempID) == "" {
		return nil, validationError("temp data id is required")
	}
	if !ValidTempID(tempID) {
		return nil, domain.ErrTempNotFound
	}
	entry, err := temps.Get(ctx, tempID)
	if err != nil {
		return nil, err
	}
	if entry.ExperimentTypeID != typeID {
		return nil, domain.ErrTempNotFound
	}
	return entry, nil
}
