package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/domain"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/simplifiedchinese"
)

// Format types reported in previews
const (
	FormatStandard = "standard"
	FormatSpecial  = "special"
	FormatExcel    = "excel"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Table is a raw parsed file: a header and string cells.
type Table struct {
	Header []string
	Rows   [][]string
	Format string
}

// ColumnIndex returns the position of name in the header, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Cell returns row[i] or "" when the row is short.
func (t *Table) Cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// AllowedFile reports whether the extension is one the service accepts.
func AllowedFile(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".xlsx", ".xls":
		return true
	}
	return false
}

// ReadTable parses a CSV or XLSX file. limit bounds the number of data rows; 0 reads all.
func ReadTable(filename string, r io.Reader, limit int) (*Table, error) {
	if !AllowedFile(filename) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFile, filepath.Ext(filename))
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xls":
		return nil, fmt.Errorf("%w: unsupported legacy Excel format, save as .xlsx", domain.ErrUnsupportedFile)
	case ".xlsx":
		return readExcel(data, limit)
	}

	text, err := decodeText(data)
	if err != nil {
		return nil, err
	}
	if isWhitespaceSeparated(text) {
		return readWhitespace(text, limit), nil
	}
	return readCSV(text, limit)
}

// decodeText strips a UTF-8 BOM and falls back to GBK for non UTF-8 input.
func decodeText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), nil
	}
	decoded, err := simplifiedchinese.GBK.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decode file: %w", err)
	}
	return string(decoded), nil
}

// isWhitespaceSeparated detects files whose rows are space separated with no commas,
// which a CSV reader would see as a single column.
func isWhitespaceSeparated(text string) bool {
	lines := nonEmptyLines(text, 2)
	if len(lines) < 2 {
		return false
	}
	first, second := lines[0], lines[1]
	return strings.ContainsAny(first, " \t") && !strings.Contains(first, ",") &&
		len(strings.Fields(first)) >= 3 &&
		strings.ContainsAny(second, " \t") && !strings.Contains(second, ",")
}

func nonEmptyLines(text string, max int) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
		if max > 0 && len(out) == max {
			break
		}
	}
	return out
}

func readWhitespace(text string, limit int) *Table {
	t := &Table{Format: FormatSpecial}
	for _, line := range nonEmptyLines(text, 0) {
		fields := strings.Fields(line)
		if t.Header == nil {
			t.Header = fields
			continue
		}
		if limit > 0 && len(t.Rows) == limit {
			break
		}
		t.Rows = append(t.Rows, fields)
	}
	return t
}

func readCSV(text string, limit int) (*Table, error) {
	cr := csv.NewReader(strings.NewReader(text))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	t := &Table{Format: FormatStandard}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		if t.Header == nil {
			t.Header = normalizeHeader(rec)
			continue
		}
		if blankRecord(rec) {
			continue
		}
		if limit > 0 && len(t.Rows) == limit {
			break
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

func readExcel(data []byte, limit int) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return &Table{Format: FormatExcel}, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	t := &Table{Format: FormatExcel}
	for _, rec := range rows {
		if t.Header == nil {
			if blankRecord(rec) {
				continue
			}
			t.Header = normalizeHeader(rec)
			continue
		}
		if blankRecord(rec) {
			continue
		}
		if limit > 0 && len(t.Rows) == limit {
			break
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

func normalizeHeader(rec []string) []string {
	out := make([]string, len(rec))
	for i, h := range rec {
		out[i] = strings.TrimSpace(h)
	}
	return out
}

func blankRecord(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
