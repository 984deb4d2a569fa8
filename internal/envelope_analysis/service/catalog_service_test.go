package service

import (
	"context"
	"testing"

	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogService_CreateType(t *testing.T) {
	ctx := context.Background()

	t.Run("trims input and defaults the time column", func(t *testing.T) {
		f := newFixture(t)
		et, err := f.catalog.CreateType(ctx, CreateTypeInput{
			Name:        "  flow ",
			DataColumns: []string{" q1", "q2 "},
		})
		require.NoError(t, err)
		assert.Equal(t, "flow", et.Name)
		assert.Equal(t, domain.DefaultTimeColumn, et.TimeColumn)
		assert.Equal(t, []string{"q1", "q2"}, et.DataColumns)
		assert.NotZero(t, et.ID)
	})

	t.Run("rejects bad column lists", func(t *testing.T) {
		f := newFixture(t)
		cases := map[string]CreateTypeInput{
			"empty name":          {Name: " ", DataColumns: []string{"a"}},
			"no columns":          {Name: "x"},
			"blank column":        {Name: "x", DataColumns: []string{"a", " "}},
			"duplicate column":    {Name: "x", DataColumns: []string{"a", "a"}},
			"time column as data": {Name: "x", TimeColumn: "time", DataColumns: []string{"time"}},
		}
		for name, in := range cases {
			_, err := f.catalog.CreateType(ctx, in)
			assert.ErrorIs(t, err, domain.ErrValidation, name)
		}
	})

	t.Run("duplicate name", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.catalog.CreateType(ctx, CreateTypeInput{Name: "pressure", DataColumns: []string{"a"}})
		assert.ErrorIs(t, err, domain.ErrDuplicateName)
	})
}

func TestCatalogService_DeleteType(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	d := f.addHistorical(t, 1, &domain.Frame{
		Time:    []float64{0, 1},
		Columns: map[string][]float64{"a": {1, 2}, "b": {3, 4}},
		Order:   []string{"a", "b"},
	})

	key, err := f.cache.Key(ctx, 1, []string{"a"}, domain.Sampling{}, []int64{d.ID})
	require.NoError(t, err)

	require.NoError(t, f.catalog.DeleteType(ctx, 1))
	assert.False(t, f.rows.has(d.TableName))

	_, err = f.catalog.GetType(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrTypeNotFound)

	after, err := f.cache.Key(ctx, 1, []string{"a"}, domain.Sampling{}, []int64{d.ID})
	require.NoError(t, err)
	assert.NotEqual(t, key, after)

	assert.ErrorIs(t, f.catalog.DeleteType(ctx, 1), domain.ErrTypeNotFound)
}

func TestCatalogService_EnvelopeInfo(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	info, err := f.catalog.EnvelopeInfo(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "pressure", info.ExperimentType.Name)
	assert.NotNil(t, info.ExperimentData)
	assert.Empty(t, info.ExperimentData)
	assert.Nil(t, info.EnvelopeSettings)

	_, err = f.settingsSvc.Save(ctx, 1, []string{"b"})
	require.NoError(t, err)
	info, err = f.catalog.EnvelopeInfo(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, info.EnvelopeSettings)
	assert.Equal(t, []string{"b"}, info.EnvelopeSettings.SelectedColumns)

	_, err = f.catalog.EnvelopeInfo(ctx, 99)
	assert.ErrorIs(t, err, domain.ErrTypeNotFound)
}

func TestSettingsService(t *testing.T) {
	ctx := context.Background()

	t.Run("get without saved settings returns an empty selection", func(t *testing.T) {
		f := newFixture(t)
		st, err := f.settingsSvc.Get(ctx, 1)
		require.NoError(t, err)
		assert.Zero(t, st.ID)
		assert.Equal(t, []string{}, st.SelectedColumns)
	})

	t.Run("save rejects columns outside the type", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.settingsSvc.Save(ctx, 1, []string{"a", "zz"})
		assert.ErrorIs(t, err, domain.ErrInvalidColumns)
		assert.Contains(t, err.Error(), "zz")
	})

	t.Run("save stores and invalidates", func(t *testing.T) {
		f := newFixture(t)
		before, err := f.cache.Key(ctx, 1, []string{"a"}, domain.Sampling{}, nil)
		require.NoError(t, err)

		st, err := f.settingsSvc.Save(ctx, 1, []string{"a", "b"})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, st.SelectedColumns)

		after, err := f.cache.Key(ctx, 1, []string{"a"}, domain.Sampling{}, nil)
		require.NoError(t, err)
		assert.NotEqual(t, before, after)

		got, err := f.settingsSvc.Get(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, got.SelectedColumns)
	})

	t.Run("save with nil clears the selection", func(t *testing.T) {
		f := newFixture(t)
		st, err := f.settingsSvc.Save(ctx, 1, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{}, st.SelectedColumns)
	})

	t.Run("unknown type", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.settingsSvc.Get(ctx, 7)
		assert.ErrorIs(t, err, domain.ErrTypeNotFound)
		_, err = f.settingsSvc.Save(ctx, 7, []string{"a"})
		assert.ErrorIs(t, err, domain.ErrTypeNotFound)
	})
}
