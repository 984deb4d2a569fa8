package service

import (
	"context"
	"errors"
	"time"

	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/compute"
	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/domain"
	"github.com/GoSim-25-26J-441/envelope-analysis/internal/logging"
	"golang.org/x/sync/errgroup"
)

// maxParallelReads bounds concurrent historical table reads
const maxParallelReads = 4

// EnvelopeRequest is the body of the envelope endpoint
type EnvelopeRequest struct {
	SelectedColumns []string `json:"selected_columns"`
	UseSampling     *bool    `json:"use_sampling,omitempty"`
	SamplingPoints  *int     `json:"sampling_points,omitempty"`
}

// CompareRequest is the body of the compare endpoint
type CompareRequest struct {
	SelectedColumns []string `json:"selected_columns"`
	TempDataID      string   `json:"temp_data_id"`
	UseSampling     *bool    `json:"use_sampling,omitempty"`
	SamplingPoints  *int     `json:"sampling_points,omitempty"`
}

// SamplingLimits are the server defaults for sampling requests
type SamplingLimits struct {
	DefaultPoints int
	MaxPoints     int
}

// EnvelopeService computes envelopes over historical datasets and compares temp
// datasets against them.
type EnvelopeService struct {
	types    TypeStore
	datasets DatasetStore
	rows     RowStore
	temps    TempStore
	cache    EnvelopeCache
	metrics  *Metrics
	limits   SamplingLimits
}

// NewEnvelopeService creates a new EnvelopeService
func NewEnvelopeService(types TypeStore, datasets DatasetStore, rows RowStore, temps TempStore, cache EnvelopeCache, metrics *Metrics, limits SamplingLimits) *EnvelopeService {
	if limits.DefaultPoints <= 0 {
		limits.DefaultPoints = 200
	}
	if limits.MaxPoints <= 0 {
		limits.MaxPoints = 5000
	}
	return &EnvelopeService{
		types:    types,
		datasets: datasets,
		rows:     rows,
		temps:    temps,
		cache:    cache,
		metrics:  metrics,
		limits:   limits,
	}
}

// resolveSampling applies the server defaults and bounds. Sampling is off
// unless use_sampling is true.
func (s *EnvelopeService) resolveSampling(use *bool, points *int) (domain.Sampling, error) {
	out := domain.Sampling{Points: s.limits.DefaultPoints}
	if use != nil {
		out.Enabled = *use
	}
	if points != nil {
		if *points < 1 || *points > s.limits.MaxPoints {
			return out, validationError("sampling_points must be between 1 and %d", s.limits.MaxPoints)
		}
		out.Points = *points
	}
	return out, nil
}

// Envelope returns the upper/lower bounds of the selected columns over every
// historical dataset of the type.
func (s *EnvelopeService) Envelope(ctx context.Context, typeID int64, req EnvelopeRequest) (*domain.EnvelopeData, error) {
	sampling, err := s.resolveSampling(req.UseSampling, req.SamplingPoints)
	if err != nil {
		return nil, err
	}
	et, err := s.selection(ctx, typeID, req.SelectedColumns)
	if err != nil {
		return nil, err
	}
	return s.envelope(ctx, et, req.SelectedColumns, sampling)
}

// Compare returns the envelope together with the selected columns of a temp
// dataset. Selected columns the temp dataset lacks are left out of comparison_data.
func (s *EnvelopeService) Compare(ctx context.Context, typeID int64, req CompareRequest) (*domain.ComparisonResult, error) {
	sampling, err := s.resolveSampling(req.UseSampling, req.SamplingPoints)
	if err != nil {
		return nil, err
	}
	et, err := s.selection(ctx, typeID, req.SelectedColumns)
	if err != nil {
		return nil, err
	}
	entry, err := lookupTemp(ctx, s.temps, typeID, req.TempDataID)
	if err != nil {
		return nil, err
	}

	env, err := s.envelope(ctx, et, req.SelectedColumns, sampling)
	if err != nil {
		return nil, err
	}

	frame, err := s.rows.Read(ctx, entry.TempDataID, timeColumn(et), req.SelectedColumns)
	if err != nil {
		if errors.Is(err, domain.ErrDatasetNotFound) {
			return nil, domain.ErrTempNotFound
		}
		return nil, err
	}
	series := compute.Comparison(frame, req.SelectedColumns, sampling)

	if err := s.temps.Touch(ctx, entry.TempDataID); err != nil {
		logging.NewLogger(ctx).LogError("Compare", err)
	}

	return &domain.ComparisonResult{
		EnvelopeData:   *env,
		ComparisonData: series,
		ComparisonSamplingInfo: &domain.SamplingInfo{
			UseSampling:    sampling.Enabled,
			SamplingPoints: series.SamplingPoints,
			OriginalPoints: series.OriginalPoints,
			SamplingMethod: series.SamplingMethod,
		},
	}, nil
}

// selection loads the type and checks the requested columns against it
func (s *EnvelopeService) selection(ctx context.Context, typeID int64, cols []string) (*domain.ExperimentType, error) {
	if len(cols) == 0 {
		return nil, validationError("select at least one column")
	}
	et, err := s.types.Get(ctx, typeID)
	if err != nil {
		return nil, err
	}
	if err := checkColumns(et, cols); err != nil {
		return nil, err
	}
	return et, nil
}

func (s *EnvelopeService) envelope(ctx context.Context, et *domain.ExperimentType, cols []string, sampling domain.Sampling) (*domain.EnvelopeData, error) {
	logger := logging.NewLogger(ctx)

	historical, err := s.datasets.ListHistorical(ctx, et.ID)
	if err != nil {
		return nil, err
	}
	if len(historical) == 0 {
		return nil, domain.ErrNoHistoricalData
	}
	ids := make([]int64, len(historical))
	for i, d := range historical {
		ids[i] = d.ID
	}

	key, err := s.cache.Key(ctx, et.ID, cols, sampling, ids)
	if err != nil {
		logger.LogError("Envelope", err)
	} else {
		cached, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			logger.LogError("Envelope", err)
		}
		s.metrics.recordCache(ok)
		if ok {
			return cached, nil
		}
	}

	start := time.Now()
	frames, err := s.loadFrames(ctx, et, historical, cols)
	if err != nil {
		return nil, err
	}
	env, err := compute.Envelope(frames, cols, sampling)
	if err != nil {
		return nil, err
	}
	s.metrics.recordCompute(start)

	if key != "" {
		if err := s.cache.Put(ctx, key, env); err != nil {
			logger.LogError("Envelope", err)
		}
	}
	return env, nil
}

// loadFrames reads the historical tables in parallel. Datasets whose table is
// gone are skipped.
func (s *EnvelopeService) loadFrames(ctx context.Context, et *domain.ExperimentType, datasets []domain.ExperimentDataset, cols []string) ([]*domain.Frame, error) {
	loaded := make([]*domain.Frame, len(datasets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelReads)
	for i, d := range datasets {
		i, d := i, d
		g.Go(func() error {
			f, err := s.rows.Read(gctx, d.TableName, timeColumn(et), cols)
			if errors.Is(err, domain.ErrDatasetNotFound) {
				logging.NewLogger(ctx).LogWarnf("Envelope", "rows of dataset %d are missing, skipping", d.ID)
				return nil
			}
			if err != nil {
				return err
			}
			loaded[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	frames := loaded[:0]
	for _, f := range loaded {
		if f != nil {
			frames = append(frames, f)
		}
	}
	return frames, nil
}
