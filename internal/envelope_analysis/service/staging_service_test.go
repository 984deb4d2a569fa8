package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/domain"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var stagedAt = time.Date(2024, 3, 9, 14, 5, 6, 0, time.Local)

func stage(t *testing.T, f *fixture, csv string) *domain.TempComparisonDataset {
	t.Helper()
	f.staging.now = func() time.Time { return stagedAt }
	temp, err := f.staging.Upload(context.Background(), 1, "new.csv", strings.NewReader(csv))
	require.NoError(t, err)
	return temp
}

func TestStagingService_Upload(t *testing.T) {
	ctx := context.Background()

	t.Run("keeps only the data columns present", func(t *testing.T) {
		f := newFixture(t)
		temp := stage(t, f, "t,b,extra\n0,1,9\n5,2,9\n")

		assert.True(t, ValidTempID(temp.TempDataID))
		assert.True(t, strings.HasPrefix(temp.TempDataID, "temp_envelope_data_20240309_140506_"))
		assert.Equal(t, []string{"b"}, temp.Columns)
		assert.Equal(t, 2, temp.RowCount)
		assert.Equal(t, domain.TimeRange{Min: 0, Max: 5}, temp.TimeRange)
		assert.True(t, f.rows.has(temp.TempDataID))

		created, ok := TempCreatedAt(temp.TempDataID)
		require.True(t, ok)
		assert.True(t, created.Equal(stagedAt))
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.tempEvents.WithLabelValues("staged")))
	})

	t.Run("needs at least one data column", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.staging.Upload(ctx, 1, "new.csv", strings.NewReader("t,zz\n0,1\n"))
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("unknown type", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.staging.Upload(ctx, 9, "new.csv", strings.NewReader("t,a\n0,1\n"))
		assert.ErrorIs(t, err, domain.ErrTypeNotFound)
	})
}

func TestStagingService_Save(t *testing.T) {
	ctx := context.Background()

	t.Run("promotes the temp table", func(t *testing.T) {
		f := newFixture(t)
		temp := stage(t, f, "t,a,b\n0,1,2\n1,2,3\n")

		d, err := f.staging.Save(ctx, 1, SaveTempInput{TempDataID: temp.TempDataID, DataName: "kept"})
		require.NoError(t, err)
		assert.Equal(t, "kept", d.DataName)
		assert.Equal(t, defaultComparisonFileName, d.FileName)
		assert.Equal(t, domain.StatusActive, d.Status)
		assert.False(t, d.IsHistorical)
		assert.Equal(t, strings.TrimPrefix(temp.TempDataID, "temp_"), d.TableName)
		assert.True(t, f.rows.has(d.TableName))
		assert.False(t, f.rows.has(temp.TempDataID))

		_, err = f.temps.Get(ctx, temp.TempDataID)
		assert.ErrorIs(t, err, domain.ErrTempNotFound)

		_, err = f.staging.Save(ctx, 1, SaveTempInput{TempDataID: temp.TempDataID, DataName: "again"})
		assert.ErrorIs(t, err, domain.ErrTempNotFound)
	})

	t.Run("reverts the rename when the dataset cannot be recorded", func(t *testing.T) {
		f := newFixture(t)
		temp := stage(t, f, "t,a\n0,1\n")
		f.datasets.createErr = errors.New("db down")

		_, err := f.staging.Save(ctx, 1, SaveTempInput{TempDataID: temp.TempDataID, DataName: "kept"})
		require.Error(t, err)
		assert.True(t, f.rows.has(temp.TempDataID))

		_, err = f.temps.Get(ctx, temp.TempDataID)
		assert.NoError(t, err)
	})

	t.Run("registry entry without rows is unregistered", func(t *testing.T) {
		f := newFixture(t)
		temp := stage(t, f, "t,a\n0,1\n")
		require.NoError(t, f.rows.Drop(ctx, temp.TempDataID))

		_, err := f.staging.Save(ctx, 1, SaveTempInput{TempDataID: temp.TempDataID, DataName: "kept"})
		assert.ErrorIs(t, err, domain.ErrTempNotFound)
		_, err = f.temps.Get(ctx, temp.TempDataID)
		assert.ErrorIs(t, err, domain.ErrTempNotFound)
	})

	t.Run("expired entry", func(t *testing.T) {
		f := newFixture(t)
		temp := stage(t, f, "t,a\n0,1\n")
		f.mr.FastForward(2 * time.Hour)

		_, err := f.staging.Save(ctx, 1, SaveTempInput{TempDataID: temp.TempDataID, DataName: "kept"})
		assert.ErrorIs(t, err, domain.ErrTempNotFound)
	})

	t.Run("input checks", func(t *testing.T) {
		f := newFixture(t)
		temp := stage(t, f, "t,a\n0,1\n")

		_, err := f.staging.Save(ctx, 1, SaveTempInput{TempDataID: temp.TempDataID, DataName: " "})
		assert.ErrorIs(t, err, domain.ErrValidation)

		_, err = f.staging.Save(ctx, 1, SaveTempInput{DataName: "kept"})
		assert.ErrorIs(t, err, domain.ErrValidation)

		_, err = f.staging.Save(ctx, 1, SaveTempInput{TempDataID: "envelope_data_1", DataName: "kept"})
		assert.ErrorIs(t, err, domain.ErrTempNotFound)

		// a temp id only works for the type it was staged under
		f.types.types[2] = domain.ExperimentType{ID: 2, Name: "other", TimeColumn: "t", DataColumns: []string{"a"}}
		_, err = f.staging.Save(ctx, 2, SaveTempInput{TempDataID: temp.TempDataID, DataName: "kept"})
		assert.ErrorIs(t, err, domain.ErrTempNotFound)
	})
}

func TestStagingService_Delete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	temp := stage(t, f, "t,a\n0,1\n")

	require.NoError(t, f.staging.Delete(ctx, 1, temp.TempDataID))
	assert.False(t, f.rows.has(temp.TempDataID))
	_, err := f.temps.Get(ctx, temp.TempDataID)
	assert.ErrorIs(t, err, domain.ErrTempNotFound)

	require.NoError(t, f.staging.Delete(ctx, 1, temp.TempDataID))
	assert.ErrorIs(t, f.staging.Delete(ctx, 1, "envelope_data_20240309_140506_abcdef01"), domain.ErrValidation)
	assert.ErrorIs(t, f.staging.Delete(ctx, 1, ""), domain.ErrValidation)
}

func TestTempIDs(t *testing.T) {
	id := newTableName(domain.TempTablePrefix, stagedAt)
	assert.True(t, ValidTempID(id))

	for _, bad := range []string{
		"",
		"temp_envelope_data_20240309_140506",
		"temp_envelope_data_20240309_140506_ABCDEF01",
		"temp_envelope_data_20240309_140506_abcdef01; drop table x",
		"envelope_data_20240309_140506_abcdef01",
	} {
		assert.False(t, ValidTempID(bad), bad)
		_, ok := TempCreatedAt(bad)
		assert.False(t, ok, bad)
	}
}
