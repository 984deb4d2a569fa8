package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/domain"
	"github.com/GoSim-25-26J-441/envelope-analysis/internal/logging"
)

// CreateTypeInput is the request to register an experiment type
type CreateTypeInput struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	TimeColumn  string   `json:"time_column"`
	DataColumns []string `json:"data_columns" binding:"required,min=1"`
}

// CatalogService manages experiment types
type CatalogService struct {
	types    TypeStore
	datasets DatasetStore
	settings SettingsStore
	rows     RowStore
	cache    EnvelopeCache
}

// NewCatalogService creates a new CatalogService
func NewCatalogService(types TypeStore, datasets DatasetStore, settings SettingsStore, rows RowStore, cache EnvelopeCache) *CatalogService {
	return &CatalogService{types: types, datasets: datasets, settings: settings, rows: rows, cache: cache}
}

// ListTypes returns all experiment types
func (s *CatalogService) ListTypes(ctx context.Context) ([]domain.ExperimentType, error) {
	return s.types.List(ctx)
}

// GetType returns one experiment type
func (s *CatalogService) GetType(ctx context.Context, id int64) (*domain.ExperimentType, error) {
	return s.types.Get(ctx, id)
}

// CreateType validates and stores a new experiment type
func (s *CatalogService) CreateType(ctx context.Context, in CreateTypeInput) (*domain.ExperimentType, error) {
	et := &domain.ExperimentType{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		TimeColumn:  strings.TrimSpace(in.TimeColumn),
	}
	if et.Name == "" {
		return nil, validationError("name is required")
	}
	if et.TimeColumn == "" {
		et.TimeColumn = domain.DefaultTimeColumn
	}

	seen := make(map[string]bool, len(in.DataColumns))
	for _, c := range in.DataColumns {
		c = strings.TrimSpace(c)
		switch {
		case c == "":
			return nil, validationError("data column names must not be empty")
		case c == et.TimeColumn:
			return nil, validationError("data columns must not include the time column %q", c)
		case seen[c]:
			return nil, validationError("duplicate data column %q", c)
		}
		seen[c] = true
		et.DataColumns = append(et.DataColumns, c)
	}
	if len(et.DataColumns) == 0 {
		return nil, validationError("at least one data column is required")
	}

	if err := s.types.Create(ctx, et); err != nil {
		return nil, err
	}
	logging.NewLogger(ctx).LogInfof("CreateType", "created experiment type %d (%s)", et.ID, et.Name)
	return et, nil
}

// DeleteType removes a type together with every dataset table it owns.
// Dataset and settings rows go with the type through ON DELETE CASCADE.
func (s *CatalogService) DeleteType(ctx context.Context, id int64) error {
	if _, err := s.types.Get(ctx, id); err != nil {
		return err
	}
	datasets, err := s.datasets.ListAll(ctx, id)
	if err != nil {
		return err
	}
	for _, d := range datasets {
		if err := s.rows.Drop(ctx, d.TableName); err != nil {
			return fmt.Errorf("failed to drop data of dataset %d: %w", d.ID, err)
		}
	}
	if err := s.types.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		logging.NewLogger(ctx).LogError("DeleteType", err)
	}
	return nil
}

// EnvelopeInfo returns the type, its active datasets and saved settings
func (s *CatalogService) EnvelopeInfo(ctx context.Context, id int64) (*domain.EnvelopeInfo, error) {
	et, err := s.types.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	datasets, err := s.datasets.ListActive(ctx, id)
	if err != nil {
		return nil, err
	}
	settings, err := s.settings.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &domain.EnvelopeInfo{
		ExperimentType:   et,
		ExperimentData:   nonNilDatasets(datasets),
		EnvelopeSettings: settings,
	}, nil
}

func nonNilDatasets(ds []domain.ExperimentDataset) []domain.ExperimentDataset {
	if ds == nil {
		return []domain.ExperimentDataset{}
	}
	return ds
}
