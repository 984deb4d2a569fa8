package ingest

import (
	"io"
	"strconv"

	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/domain"
)

const sampleValueCount = 5

// Preview parses at most rows data rows and reports validation and per-column info.
func Preview(filename string, r io.Reader, et *domain.ExperimentType, rows int) (*domain.FilePreview, error) {
	t, err := ReadTable(filename, r, rows)
	if err != nil {
		return nil, err
	}

	p := &domain.FilePreview{
		FileInfo: domain.FileInfo{
			Name:         filename,
			RowsPreview:  len(t.Rows),
			TotalColumns: len(t.Header),
			Columns:      t.Header,
			FormatType:   t.Format,
		},
		Validation:  Validate(t, et, RequireAllColumns),
		DataPreview: make([]map[string]any, 0, len(t.Rows)),
		ColumnInfo:  make(map[string]domain.ColumnInfo, len(t.Header)),
	}
	if t.Format == FormatSpecial && p.Validation.IsValid {
		p.Validation.Message = "whitespace separated file detected and converted; " + p.Validation.Message
	}

	for _, rec := range t.Rows {
		row := make(map[string]any, len(t.Header))
		for i, h := range t.Header {
			row[h] = typedCell(t.Cell(rec, i))
		}
		p.DataPreview = append(p.DataPreview, row)
	}

	for i, h := range t.Header {
		info := domain.ColumnInfo{Type: "numeric", SampleValues: []any{}}
		for _, rec := range t.Rows {
			cell := t.Cell(rec, i)
			if cell == "" {
				continue
			}
			info.NonNullCount++
			v := typedCell(cell)
			if _, ok := v.(float64); !ok {
				info.Type = "text"
			}
			if len(info.SampleValues) < sampleValueCount {
				info.SampleValues = append(info.SampleValues, v)
			}
		}
		if info.NonNullCount == 0 {
			info.Type = "empty"
		}
		p.ColumnInfo[h] = info
	}
	return p, nil
}

func typedCell(cell string) any {
	if cell == "" {
		return nil
	}
	if v, err := strconv.ParseFloat(cell, 64); err == nil {
		return v
	}
	return cell
}
