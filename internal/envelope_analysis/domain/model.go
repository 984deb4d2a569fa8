package domain

import "time"

// DefaultTimeColumn is used when an experiment type does not name its time column.
const DefaultTimeColumn = "t"

// Dataset status values
const (
	StatusProcessing = "processing"
	StatusActive     = "active"
	StatusFailed     = "failed"
)

// Sampling methods reported with envelope and comparison payloads
const (
	SamplingTimeInterval = "time_interval"
	SamplingFullData     = "full_data"
)

// TempTablePrefix prefixes every staged comparison table; promotion strips "temp_".
const TempTablePrefix = "temp_envelope_data_"

// ExperimentType defines the schema shared by a family of datasets.
type ExperimentType struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	TimeColumn  string    `json:"time_column"`
	DataColumns []string  `json:"data_columns"`
	CreatedAt   time.Time `json:"created_at"`
}

// HasColumn reports whether col is one of the type's data columns.
func (t *ExperimentType) HasColumn(col string) bool {
	for _, c := range t.DataColumns {
		if c == col {
			return true
		}
	}
	return false
}

// ExperimentDataset is the metadata of one uploaded run. Rows live in TableName.
type ExperimentDataset struct {
	ID                  int64     `json:"id"`
	ExperimentTypeID    int64     `json:"experiment_type_id"`
	DataName            string    `json:"data_name"`
	FileName            string    `json:"file_name"`
	RowCount            int       `json:"row_count"`
	UploadTime          time.Time `json:"upload_time"`
	UploadTimeFormatted string    `json:"upload_time_formatted,omitempty"`
	IsHistorical        bool      `json:"is_historical"`
	Status              string    `json:"status"`
	TableName           string    `json:"-"`
}

// DatasetStatistics aggregates the active datasets of a type.
type DatasetStatistics struct {
	TotalCount      int `json:"total_count"`
	HistoricalCount int `json:"historical_count"`
	ActiveCount     int `json:"active_count"`
	TotalRows       int `json:"total_rows"`
}

// DatasetList is the payload of the dataset listing endpoint.
type DatasetList struct {
	ExperimentType *ExperimentType     `json:"experiment_type"`
	ExperimentData []ExperimentDataset `json:"experiment_data"`
	Statistics     DatasetStatistics   `json:"statistics"`
}

// StoreInfo describes the stored rows behind a dataset.
type StoreInfo struct {
	TableExists bool     `json:"table_exists"`
	StoredRows  int64    `json:"stored_rows"`
	Columns     []string `json:"columns"`
}

// DatasetInfo is a dataset plus what the row store knows about it.
type DatasetInfo struct {
	ExperimentDataset
	StoreInfo *StoreInfo `json:"store_info,omitempty"`
}

// EnvelopeSettings is the saved column selection of an experiment type.
// A zero ID means nothing has been saved yet.
type EnvelopeSettings struct {
	ID               int64      `json:"id,omitempty"`
	ExperimentTypeID int64      `json:"experiment_type_id,omitempty"`
	SelectedColumns  []string   `json:"selected_columns"`
	TimeRangeStart   *float64   `json:"time_range_start,omitempty"`
	TimeRangeEnd     *float64   `json:"time_range_end,omitempty"`
	UpdatedAt        *time.Time `json:"updated_at,omitempty"`
}

// EnvelopeInfo is the payload of the envelope info endpoint.
type EnvelopeInfo struct {
	ExperimentType   *ExperimentType     `json:"experiment_type"`
	ExperimentData   []ExperimentDataset `json:"experiment_data"`
	EnvelopeSettings *EnvelopeSettings   `json:"envelope_settings"`
}

// TimeRange is an inclusive [Min, Max] span on the time axis.
type TimeRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// TempComparisonDataset describes a staged upload. TempDataID is a capability token.
type TempComparisonDataset struct {
	TempDataID string    `json:"temp_data_id"`
	RowCount   int       `json:"row_count"`
	Columns    []string  `json:"columns"`
	TimeRange  TimeRange `json:"time_range"`
}

// Bounds holds the upper and lower curves of one column, aligned with EnvelopeData.TimePoints.
type Bounds struct {
	Upper []float64 `json:"upper"`
	Lower []float64 `json:"lower"`
}

// EnvelopeData is the envelope of the historical corpus for a column selection.
type EnvelopeData struct {
	TimePoints     []float64         `json:"time_points"`
	EnvelopeData   map[string]Bounds `json:"envelope_data"`
	DataCount      int               `json:"data_count"`
	TimeRange      TimeRange         `json:"time_range"`
	SamplingMethod string            `json:"sampling_method,omitempty"`
	SamplingPoints int               `json:"sampling_points,omitempty"`
	OriginalPoints int               `json:"original_points,omitempty"`
}

// ComparisonSeries is a temp dataset's series on its own time axis.
type ComparisonSeries struct {
	TimePoints     []float64            `json:"time_points"`
	Data           map[string][]float64 `json:"data"`
	SamplingMethod string               `json:"sampling_method,omitempty"`
	SamplingPoints int                  `json:"sampling_points,omitempty"`
	OriginalPoints int                  `json:"original_points,omitempty"`
	TimeRange      TimeRange            `json:"time_range"`
}

// SamplingInfo summarises how the comparison series was reduced.
type SamplingInfo struct {
	UseSampling    bool   `json:"use_sampling"`
	SamplingPoints int    `json:"sampling_points"`
	OriginalPoints int    `json:"original_points"`
	SamplingMethod string `json:"sampling_method"`
}

// ComparisonResult pairs an envelope snapshot with one temp dataset's series.
type ComparisonResult struct {
	EnvelopeData           EnvelopeData     `json:"envelope_data"`
	ComparisonData         ComparisonSeries `json:"comparison_data"`
	ComparisonSamplingInfo *SamplingInfo    `json:"comparison_sampling_info,omitempty"`
}

// Sampling is the downsampling request of an envelope or compare call.
type Sampling struct {
	Enabled bool
	Points  int
}

// Frame is a parsed, cleaned table: one time axis and numeric columns of equal length.
type Frame struct {
	Time    []float64
	Columns map[string][]float64
	// Order keeps the column order of the source file.
	Order []string
}

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.Time) }

// TimeRange returns the span of the time axis. The frame must be sorted and non-empty.
func (f *Frame) TimeRange() TimeRange {
	if len(f.Time) == 0 {
		return TimeRange{}
	}
	return TimeRange{Min: f.Time[0], Max: f.Time[len(f.Time)-1]}
}

// FileInfo describes a previewed file.
type FileInfo struct {
	Name         string   `json:"name"`
	RowsPreview  int      `json:"rows_preview"`
	TotalColumns int      `json:"total_columns"`
	Columns      []string `json:"columns"`
	FormatType   string   `json:"format_type"`
}

// Validation is the outcome of checking a file against an experiment type.
type Validation struct {
	IsValid bool     `json:"is_valid"`
	Issues  []string `json:"issues"`
	Message string   `json:"message"`
}

// ColumnInfo summarises one previewed column.
type ColumnInfo struct {
	Type         string `json:"type"`
	NonNullCount int    `json:"non_null_count"`
	SampleValues []any  `json:"sample_values"`
}

// FilePreview is the bounded, side-effect free view of an uploaded file.
type FilePreview struct {
	FileInfo    FileInfo              `json:"file_info"`
	Validation  Validation            `json:"validation"`
	DataPreview []map[string]any      `json:"data_preview"`
	ColumnInfo  map[string]ColumnInfo `json:"column_info"`
}
