package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/domain"
	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/repository"
	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

type memTypes struct {
	mu    sync.Mutex
	next  int64
	types map[int64]domain.ExperimentType
}

func newMemTypes(types ...domain.ExperimentType) *memTypes {
	m := &memTypes{types: make(map[int64]domain.ExperimentType)}
	for _, et := range types {
		m.types[et.ID] = et
		if et.ID > m.next {
			m.next = et.ID
		}
	}
	return m
}

func (m *memTypes) List(ctx context.Context) ([]domain.ExperimentType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.ExperimentType{}
	for _, et := range m.types {
		out = append(out, et)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memTypes) Get(ctx context.Context, id int64) (*domain.ExperimentType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	et, ok := m.types[id]
	if !ok {
		return nil, domain.ErrTypeNotFound
	}
	return &et, nil
}

func (m *memTypes) Create(ctx context.Context, et *domain.ExperimentType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.types {
		if existing.Name == et.Name {
			return domain.ErrDuplicateName
		}
	}
	m.next++
	et.ID = m.next
	et.CreatedAt = time.Now()
	m.types[et.ID] = *et
	return nil
}

func (m *memTypes) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.types[id]; !ok {
		return domain.ErrTypeNotFound
	}
	delete(m.types, id)
	return nil
}

type memDatasets struct {
	mu        sync.Mutex
	next      int64
	rows      map[int64]domain.ExperimentDataset
	createErr error
}

func newMemDatasets(ds ...domain.ExperimentDataset) *memDatasets {
	m := &memDatasets{rows: make(map[int64]domain.ExperimentDataset)}
	for _, d := range ds {
		m.rows[d.ID] = d
		if d.ID > m.next {
			m.next = d.ID
		}
	}
	return m
}

func (m *memDatasets) filter(keep func(domain.ExperimentDataset) bool) []domain.ExperimentDataset {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.ExperimentDataset{}
	for _, d := range m.rows {
		if keep(d) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memDatasets) ListActive(ctx context.Context, typeID int64) ([]domain.ExperimentDataset, error) {
	return m.filter(func(d domain.ExperimentDataset) bool {
		return d.ExperimentTypeID == typeID && d.Status == domain.StatusActive
	}), nil
}

func (m *memDatasets) ListHistorical(ctx context.Context, typeID int64) ([]domain.ExperimentDataset, error) {
	return m.filter(func(d domain.ExperimentDataset) bool {
		return d.ExperimentTypeID == typeID && d.Status == domain.StatusActive && d.IsHistorical
	}), nil
}

func (m *memDatasets) ListAll(ctx context.Context, typeID int64) ([]domain.ExperimentDataset, error) {
	return m.filter(func(d domain.ExperimentDataset) bool { return d.ExperimentTypeID == typeID }), nil
}

func (m *memDatasets) Get(ctx context.Context, id int64) (*domain.ExperimentDataset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrDatasetNotFound
	}
	return &d, nil
}

func (m *memDatasets) Create(ctx context.Context, d *domain.ExperimentDataset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.next++
	d.ID = m.next
	d.UploadTime = time.Now()
	m.rows[d.ID] = *d
	return nil
}

func (m *memDatasets) SetStatus(ctx context.Context, id int64, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.rows[id]
	if !ok {
		return domain.ErrDatasetNotFound
	}
	d.Status = status
	m.rows[id] = d
	return nil
}

func (m *memDatasets) SetHistorical(ctx context.Context, id int64, historical bool) (*domain.ExperimentDataset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrDatasetNotFound
	}
	d.IsHistorical = historical
	m.rows[id] = d
	return &d, nil
}

func (m *memDatasets) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return domain.ErrDatasetNotFound
	}
	delete(m.rows, id)
	return nil
}

type memSettings struct {
	mu   sync.Mutex
	byID map[int64]domain.EnvelopeSettings
}

func newMemSettings() *memSettings {
	return &memSettings{byID: make(map[int64]domain.EnvelopeSettings)}
}

func (m *memSettings) Get(ctx context.Context, typeID int64) (*domain.EnvelopeSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[typeID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memSettings) Upsert(ctx context.Context, typeID int64, columns []string) (*domain.EnvelopeSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := domain.EnvelopeSettings{ID: typeID, ExperimentTypeID: typeID, SelectedColumns: columns}
	m.byID[typeID] = s
	return &s, nil
}

// memRows keeps frames by table name
type memRows struct {
	mu       sync.Mutex
	tables   map[string]*domain.Frame
	reads    int
	writeErr error
}

func newMemRows() *memRows {
	return &memRows{tables: make(map[string]*domain.Frame)}
}

func (m *memRows) Write(ctx context.Context, table, timeCol string, f *domain.Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.tables[table] = f
	return nil
}

func (m *memRows) Read(ctx context.Context, table, timeCol string, cols []string) (*domain.Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	f, ok := m.tables[table]
	if !ok {
		return nil, domain.ErrDatasetNotFound
	}
	out := &domain.Frame{Time: f.Time, Columns: make(map[string][]float64)}
	for _, c := range cols {
		if v, ok := f.Columns[c]; ok {
			out.Columns[c] = v
			out.Order = append(out.Order, c)
		}
	}
	return out, nil
}

func (m *memRows) Info(ctx context.Context, table string) (*domain.StoreInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.tables[table]
	if !ok {
		return &domain.StoreInfo{Columns: []string{}}, nil
	}
	return &domain.StoreInfo{TableExists: true, StoredRows: int64(f.Len()), Columns: f.Order}, nil
}

func (m *memRows) Rename(ctx context.Context, from, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.tables[from]
	if !ok {
		return domain.ErrTempNotFound
	}
	delete(m.tables, from)
	m.tables[to] = f
	return nil
}

func (m *memRows) Drop(ctx context.Context, table string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tables, table)
	return nil
}

func (m *memRows) has(table string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tables[table]
	return ok
}

func (m *memRows) readCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// fixture wires every service over in-memory stores and a miniredis backed
// temp registry and envelope cache.
type fixture struct {
	mr       *miniredis.Miniredis
	types    *memTypes
	datasets *memDatasets
	settings *memSettings
	rows     *memRows
	temps    *repository.TempRegistry
	cache    *repository.EnvelopeCache
	reg      *prometheus.Registry
	metrics  *Metrics

	catalog     *CatalogService
	registry    *RegistryService
	settingsSvc *SettingsService
	staging     *StagingService
	envelope    *EnvelopeService
}

func pressureType() domain.ExperimentType {
	return domain.ExperimentType{ID: 1, Name: "pressure", TimeColumn: "t", DataColumns: []string{"a", "b"}}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	f := &fixture{
		mr:       mr,
		types:    newMemTypes(pressureType()),
		datasets: newMemDatasets(),
		settings: newMemSettings(),
		rows:     newMemRows(),
		temps:    repository.NewTempRegistry(rdb, time.Hour),
		cache:    repository.NewEnvelopeCache(rdb, time.Hour),
		reg:      prometheus.NewRegistry(),
	}
	f.metrics = NewMetrics(f.reg)
	f.catalog = NewCatalogService(f.types, f.datasets, f.settings, f.rows, f.cache)
	f.registry = NewRegistryService(f.types, f.datasets, f.rows, f.cache, f.metrics, 5)
	f.settingsSvc = NewSettingsService(f.types, f.settings, f.cache)
	f.staging = NewStagingService(f.types, f.datasets, f.rows, f.temps, f.cache, f.metrics)
	f.envelope = NewEnvelopeService(f.types, f.datasets, f.rows, f.temps, f.cache, f.metrics, SamplingLimits{DefaultPoints: 200, MaxPoints: 1000})
	return f
}

// addHistorical stores an active historical dataset with the given rows
func (f *fixture) addHistorical(t *testing.T, typeID int64, frame *domain.Frame) domain.ExperimentDataset {
	t.Helper()
	d := &domain.ExperimentDataset{
		ExperimentTypeID: typeID,
		DataName:         "hist",
		RowCount:         frame.Len(),
		IsHistorical:     true,
		Status:           domain.StatusActive,
		TableName:        newTableName(datasetTablePrefix, time.Now()),
	}
	if err := f.datasets.Create(context.Background(), d); err != nil {
		t.Fatal(err)
	}
	if err := f.rows.Write(context.Background(), d.TableName, "t", frame); err != nil {
		t.Fatal(err)
	}
	return *d
}
