package service

import (
	"context"

	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/domain"
	"github.com/GoSim-25-26J-441/envelope-analysis/internal/logging"
)

// SettingsService reads and saves the column selection of a type
type SettingsService struct {
	types    TypeStore
	settings SettingsStore
	cache    EnvelopeCache
}

// NewSettingsService creates a new SettingsService
func NewSettingsService(types TypeStore, settings SettingsStore, cache EnvelopeCache) *SettingsService {
	return &SettingsService{types: types, settings: settings, cache: cache}
}

// Get returns the saved settings, or an empty record when none exist
func (s *SettingsService) Get(ctx context.Context, typeID int64) (*domain.EnvelopeSettings, error) {
	if _, err := s.types.Get(ctx, typeID); err != nil {
		return nil, err
	}
	st, err := s.settings.Get(ctx, typeID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return &domain.EnvelopeSettings{SelectedColumns: []string{}}, nil
	}
	return st, nil
}

// Save upserts the selection. Every column must belong to the type.
func (s *SettingsService) Save(ctx context.Context, typeID int64, columns []string) (*domain.EnvelopeSettings, error) {
	et, err := s.types.Get(ctx, typeID)
	if err != nil {
		return nil, err
	}
	if err := checkColumns(et, columns); err != nil {
		return nil, err
	}
	if columns == nil {
		columns = []string{}
	}

	st, err := s.settings.Upsert(ctx, typeID, columns)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Invalidate(ctx, typeID); err != nil {
		logging.NewLogger(ctx).LogError("SaveSettings", err)
	}
	return st, nil
}
