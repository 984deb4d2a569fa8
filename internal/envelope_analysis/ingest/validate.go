package ingest

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/domain"
)

// Requirement selects how many schema data columns a file must carry.
type Requirement int

const (
	// RequireAllColumns is used for regular uploads.
	RequireAllColumns Requirement = iota
	// RequireAnyColumn is used for temp comparison uploads: the time column plus at least
	// one data column.
	RequireAnyColumn
)

// Validate checks a parsed table against an experiment type.
func Validate(t *Table, et *domain.ExperimentType, req Requirement) domain.Validation {
	var issues []string

	timeCol := timeColumn(et)
	var missing []string
	if t.ColumnIndex(timeCol) < 0 {
		missing = append(missing, timeCol)
	}
	present := PresentDataColumns(t, et)
	if req == RequireAllColumns {
		for _, c := range et.DataColumns {
			if t.ColumnIndex(c) < 0 {
				missing = append(missing, c)
			}
		}
	} else if len(present) == 0 {
		missing = append(missing, "any of "+strings.Join(et.DataColumns, ", "))
	}
	if len(missing) > 0 {
		issues = append(issues, "missing required columns: "+strings.Join(missing, ", "))
	}

	if i := t.ColumnIndex(timeCol); i >= 0 && !numericColumn(t, i) {
		issues = append(issues, fmt.Sprintf("time column %q must be numeric", timeCol))
	}
	for _, c := range present {
		if !numericColumn(t, t.ColumnIndex(c)) {
			issues = append(issues, fmt.Sprintf("data column %q must be numeric", c))
		}
	}

	if len(t.Rows) == 0 {
		issues = append(issues, "file contains no data")
	}

	v := domain.Validation{IsValid: len(issues) == 0, Issues: issues}
	if v.IsValid {
		v.Issues = []string{}
		v.Message = "data format is valid"
	} else {
		v.Message = strings.Join(issues, "; ")
	}
	return v
}

// PresentDataColumns returns the schema data columns found in the header, in schema order.
func PresentDataColumns(t *Table, et *domain.ExperimentType) []string {
	var out []string
	for _, c := range et.DataColumns {
		if t.ColumnIndex(c) >= 0 {
			out = append(out, c)
		}
	}
	return out
}

// ToFrame converts the time column and cols to floats. Rows with an empty or
// non-finite value in any of them are dropped, and the result is sorted by time.
func ToFrame(t *Table, timeCol string, cols []string) (*domain.Frame, error) {
	ti := t.ColumnIndex(timeCol)
	if ti < 0 {
		return nil, fmt.Errorf("%w: missing time column %q", domain.ErrValidation, timeCol)
	}
	idx := make([]int, len(cols))
	for k, c := range cols {
		if idx[k] = t.ColumnIndex(c); idx[k] < 0 {
			return nil, fmt.Errorf("%w: missing column %q", domain.ErrValidation, c)
		}
	}

	type row struct {
		t    float64
		vals []float64
	}
	rows := make([]row, 0, len(t.Rows))
	for _, rec := range t.Rows {
		tv, ok := parseFinite(t.Cell(rec, ti))
		if !ok {
			continue
		}
		vals := make([]float64, len(cols))
		keep := true
		for k, i := range idx {
			v, ok := parseFinite(t.Cell(rec, i))
			if !ok {
				keep = false
				break
			}
			vals[k] = v
		}
		if keep {
			rows = append(rows, row{t: tv, vals: vals})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].t < rows[j].t })

	f := &domain.Frame{
		Time:    make([]float64, len(rows)),
		Columns: make(map[string][]float64, len(cols)),
		Order:   append([]string(nil), cols...),
	}
	for _, c := range cols {
		f.Columns[c] = make([]float64, len(rows))
	}
	for r, rw := range rows {
		f.Time[r] = rw.t
		for k, c := range cols {
			f.Columns[c][r] = rw.vals[k]
		}
	}
	return f, nil
}

func timeColumn(et *domain.ExperimentType) string {
	if et.TimeColumn == "" {
		return domain.DefaultTimeColumn
	}
	return et.TimeColumn
}

// numericColumn is true when every non-empty cell parses as a number.
func numericColumn(t *Table, i int) bool {
	for _, rec := range t.Rows {
		cell := t.Cell(rec, i)
		if cell == "" {
			continue
		}
		if _, err := strconv.ParseFloat(cell, 64); err != nil {
			return false
		}
	}
	return true
}

func parseFinite(cell string) (float64, bool) {
	if cell == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
