package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/domain"
	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/repository"
	"github.com/google/uuid"
)

// TypeStore is the experiment type metadata the services need
type TypeStore interface {
	List(ctx context.Context) ([]domain.ExperimentType, error)
	Get(ctx context.Context, id int64) (*domain.ExperimentType, error)
	Create(ctx context.Context, et *domain.ExperimentType) error
	Delete(ctx context.Context, id int64) error
}

// DatasetStore is the dataset metadata the services need
type DatasetStore interface {
	ListActive(ctx context.Context, typeID int64) ([]domain.ExperimentDataset, error)
	ListHistorical(ctx context.Context, typeID int64) ([]domain.ExperimentDataset, error)
	ListAll(ctx context.Context, typeID int64) ([]domain.ExperimentDataset, error)
	Get(ctx context.Context, id int64) (*domain.ExperimentDataset, error)
	Create(ctx context.Context, d *domain.ExperimentDataset) error
	SetStatus(ctx context.Context, id int64, status string) error
	SetHistorical(ctx context.Context, id int64, historical bool) (*domain.ExperimentDataset, error)
	Delete(ctx context.Context, id int64) error
}

// SettingsStore persists envelope settings
type SettingsStore interface {
	Get(ctx context.Context, typeID int64) (*domain.EnvelopeSettings, error)
	Upsert(ctx context.Context, typeID int64, columns []string) (*domain.EnvelopeSettings, error)
}

// RowStore holds dataset rows, one table per dataset
type RowStore interface {
	Write(ctx context.Context, table, timeCol string, f *domain.Frame) error
	Read(ctx context.Context, table, timeCol string, cols []string) (*domain.Frame, error)
	Info(ctx context.Context, table string) (*domain.StoreInfo, error)
	Rename(ctx context.Context, from, to string) error
	Drop(ctx context.Context, table string) error
}

// TempStore tracks live staged uploads
type TempStore interface {
	Put(ctx context.Context, e *repository.TempEntry) error
	Get(ctx context.Context, id string) (*repository.TempEntry, error)
	Touch(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// EnvelopeCache caches computed envelopes per experiment type
type EnvelopeCache interface {
	Key(ctx context.Context, typeID int64, cols []string, s domain.Sampling, historicalIDs []int64) (string, error)
	Get(ctx context.Context, key string) (*domain.EnvelopeData, bool, error)
	Put(ctx context.Context, key string, env *domain.EnvelopeData) error
	Invalidate(ctx context.Context, typeID int64) error
}

const datasetTablePrefix = "envelope_data_"

var tempIDPattern = regexp.MustCompile(`^temp_envelope_data_\d{8}_\d{6}_[0-9a-f]{8}$`)

// newTableName returns prefix + YYYYmmdd_HHMMSS + a short random suffix.
func newTableName(prefix string, now time.Time) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return prefix + now.Format("20060102_150405") + "_" + suffix
}

// ValidTempID reports whether id has the shape of an issued temp_data_id.
func ValidTempID(id string) bool {
	return tempIDPattern.MatchString(id)
}

// TempCreatedAt recovers the staging time encoded in a temp_data_id.
func TempCreatedAt(id string) (time.Time, bool) {
	if !ValidTempID(id) {
		return time.Time{}, false
	}
	stamp := strings.TrimPrefix(id, domain.TempTablePrefix)[:len("20060102_150405")]
	t, err := time.ParseInLocation("20060102_150405", stamp, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrValidation, fmt.Sprintf(format, args...))
}

func timeColumn(et *domain.ExperimentType) string {
	if et.TimeColumn == "" {
		return domain.DefaultTimeColumn
	}
	return et.TimeColumn
}

// checkColumns returns ErrInvalidColumns naming every column outside the type's schema.
func checkColumns(et *domain.ExperimentType, cols []string) error {
	var bad []string
	for _, c := range cols {
		if !et.HasColumn(c) {
			bad = append(bad, c)
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrInvalidColumns, strings.Join(bad, ", "))
	}
	return nil
}
