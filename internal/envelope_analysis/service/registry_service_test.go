package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/domain"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pressureCSV = "t,a,b\n2,20,200\n0,1,100\n1,10,\n"

func TestRegistryService_Upload(t *testing.T) {
	ctx := context.Background()

	t.Run("stores cleaned rows as an active, non historical dataset", func(t *testing.T) {
		f := newFixture(t)
		d, err := f.registry.Upload(ctx, 1, "run.csv", strings.NewReader(pressureCSV), " run 1 ")
		require.NoError(t, err)

		assert.Equal(t, "run 1", d.DataName)
		assert.Equal(t, domain.StatusActive, d.Status)
		assert.False(t, d.IsHistorical)
		assert.Equal(t, 2, d.RowCount)
		assert.True(t, strings.HasPrefix(d.TableName, datasetTablePrefix))

		stored, err := f.rows.Read(ctx, d.TableName, "t", []string{"a"})
		require.NoError(t, err)
		assert.Equal(t, []float64{0, 2}, stored.Time)
		assert.Equal(t, []float64{1, 20}, stored.Columns["a"])

		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.uploads.WithLabelValues("dataset", "ok")))
	})

	t.Run("requires every data column", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.registry.Upload(ctx, 1, "run.csv", strings.NewReader("t,a\n0,1\n"), "run")
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.uploads.WithLabelValues("dataset", "error")))
	})

	t.Run("requires a name", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.registry.Upload(ctx, 1, "run.csv", strings.NewReader(pressureCSV), "  ")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("unsupported file", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.registry.Upload(ctx, 1, "run.txt", strings.NewReader(pressureCSV), "run")
		assert.ErrorIs(t, err, domain.ErrUnsupportedFile)
	})

	t.Run("failed row write marks the dataset failed", func(t *testing.T) {
		f := newFixture(t)
		f.rows.writeErr = errors.New("disk full")

		_, err := f.registry.Upload(ctx, 1, "run.csv", strings.NewReader(pressureCSV), "run")
		require.Error(t, err)

		all, err := f.datasets.ListAll(ctx, 1)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, domain.StatusFailed, all[0].Status)

		active, err := f.datasets.ListActive(ctx, 1)
		require.NoError(t, err)
		assert.Empty(t, active)
	})
}

func TestRegistryService_ListAndInfo(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	d1, err := f.registry.Upload(ctx, 1, "one.csv", strings.NewReader(pressureCSV), "one")
	require.NoError(t, err)
	_, err = f.registry.Upload(ctx, 1, "two.csv", strings.NewReader(pressureCSV), "two")
	require.NoError(t, err)
	_, err = f.registry.SetHistorical(ctx, d1.ID, true)
	require.NoError(t, err)

	list, err := f.registry.List(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.DatasetStatistics{TotalCount: 2, HistoricalCount: 1, ActiveCount: 2, TotalRows: 4}, list.Statistics)
	for _, d := range list.ExperimentData {
		assert.NotEmpty(t, d.UploadTimeFormatted)
	}

	info, err := f.registry.Info(ctx, d1.ID)
	require.NoError(t, err)
	require.NotNil(t, info.StoreInfo)
	assert.True(t, info.StoreInfo.TableExists)
	assert.Equal(t, int64(2), info.StoreInfo.StoredRows)

	_, err = f.registry.Info(ctx, 404)
	assert.ErrorIs(t, err, domain.ErrDatasetNotFound)
}

func TestRegistryService_SetHistoricalInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	d, err := f.registry.Upload(ctx, 1, "one.csv", strings.NewReader(pressureCSV), "one")
	require.NoError(t, err)

	before, err := f.cache.Key(ctx, 1, []string{"a"}, domain.Sampling{}, []int64{d.ID})
	require.NoError(t, err)

	// same value twice still bumps the generation
	for i := 0; i < 2; i++ {
		got, err := f.registry.SetHistorical(ctx, d.ID, true)
		require.NoError(t, err)
		assert.True(t, got.IsHistorical)

		after, err := f.cache.Key(ctx, 1, []string{"a"}, domain.Sampling{}, []int64{d.ID})
		require.NoError(t, err)
		assert.NotEqual(t, before, after)
		before = after
	}

	_, err = f.registry.SetHistorical(ctx, 404, true)
	assert.ErrorIs(t, err, domain.ErrDatasetNotFound)
}

func TestRegistryService_Delete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	d, err := f.registry.Upload(ctx, 1, "one.csv", strings.NewReader(pressureCSV), "one")
	require.NoError(t, err)

	require.NoError(t, f.registry.Delete(ctx, d.ID))
	assert.False(t, f.rows.has(d.TableName))
	assert.ErrorIs(t, f.registry.Delete(ctx, d.ID), domain.ErrDatasetNotFound)
}

func TestRegistryService_PreviewStoresNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	p, err := f.registry.Preview(ctx, 1, "run.csv", strings.NewReader(pressureCSV))
	require.NoError(t, err)
	assert.True(t, p.Validation.IsValid)
	assert.Equal(t, []string{"t", "a", "b"}, p.FileInfo.Columns)

	all, err := f.datasets.ListAll(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, all)
}
