package ingest_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/domain"
	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/simplifiedchinese"
)

func pressureType() *domain.ExperimentType {
	return &domain.ExperimentType{ID: 1, Name: "pressure", TimeColumn: "t", DataColumns: []string{"a", "b"}}
}

func TestReadTable(t *testing.T) {
	t.Run("csv with BOM and blank lines", func(t *testing.T) {
		data := "\xEF\xBB\xBFt, a ,b\n0,1,2\n\n1,3,4\n"
		tbl, err := ingest.ReadTable("run.csv", strings.NewReader(data), 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"t", "a", "b"}, tbl.Header)
		assert.Len(t, tbl.Rows, 2)
		assert.Equal(t, ingest.FormatStandard, tbl.Format)
	})

	t.Run("whitespace separated", func(t *testing.T) {
		data := "t a b\n0 1 2\n1 3 4\n"
		tbl, err := ingest.ReadTable("run.csv", strings.NewReader(data), 0)
		require.NoError(t, err)
		assert.Equal(t, ingest.FormatSpecial, tbl.Format)
		assert.Equal(t, []string{"1", "3", "4"}, tbl.Rows[1])
	})

	t.Run("gbk encoded", func(t *testing.T) {
		enc, err := simplifiedchinese.GBK.NewEncoder().String("t,压力\n0,1\n")
		require.NoError(t, err)
		tbl, err := ingest.ReadTable("run.csv", strings.NewReader(enc), 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"t", "压力"}, tbl.Header)
	})

	t.Run("limit bounds the rows", func(t *testing.T) {
		tbl, err := ingest.ReadTable("run.csv", strings.NewReader("t,a\n0,1\n1,2\n2,3\n"), 2)
		require.NoError(t, err)
		assert.Len(t, tbl.Rows, 2)
	})

	t.Run("xlsx", func(t *testing.T) {
		f := excelize.NewFile()
		sheet := f.GetSheetName(0)
		require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"t", "a", "b"}))
		require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{0, 1.5, 2}))
		var buf bytes.Buffer
		require.NoError(t, f.Write(&buf))

		tbl, err := ingest.ReadTable("run.xlsx", &buf, 0)
		require.NoError(t, err)
		assert.Equal(t, ingest.FormatExcel, tbl.Format)
		assert.Equal(t, []string{"t", "a", "b"}, tbl.Header)
		assert.Equal(t, "1.5", tbl.Rows[0][1])
	})

	t.Run("unsupported files", func(t *testing.T) {
		_, err := ingest.ReadTable("run.txt", strings.NewReader(""), 0)
		assert.ErrorIs(t, err, domain.ErrUnsupportedFile)
		_, err = ingest.ReadTable("run.xls", strings.NewReader(""), 0)
		assert.ErrorIs(t, err, domain.ErrUnsupportedFile)
	})
}

func TestValidate(t *testing.T) {
	et := pressureType()

	t.Run("regular uploads need every column", func(t *testing.T) {
		tbl, err := ingest.ReadTable("run.csv", strings.NewReader("t,a\n0,1\n"), 0)
		require.NoError(t, err)
		v := ingest.Validate(tbl, et, ingest.RequireAllColumns)
		assert.False(t, v.IsValid)
		assert.Contains(t, v.Message, "b")
	})

	t.Run("temp uploads need one data column", func(t *testing.T) {
		tbl, err := ingest.ReadTable("run.csv", strings.NewReader("t,a\n0,1\n"), 0)
		require.NoError(t, err)
		v := ingest.Validate(tbl, et, ingest.RequireAnyColumn)
		assert.True(t, v.IsValid)
		assert.Equal(t, []string{"a"}, ingest.PresentDataColumns(tbl, et))
	})

	t.Run("non numeric data", func(t *testing.T) {
		tbl, err := ingest.ReadTable("run.csv", strings.NewReader("t,a,b\n0,x,1\n"), 0)
		require.NoError(t, err)
		v := ingest.Validate(tbl, et, ingest.RequireAllColumns)
		assert.False(t, v.IsValid)
		assert.Contains(t, v.Issues, `data column "a" must be numeric`)
	})

	t.Run("empty file", func(t *testing.T) {
		tbl, err := ingest.ReadTable("run.csv", strings.NewReader("t,a,b\n"), 0)
		require.NoError(t, err)
		v := ingest.Validate(tbl, et, ingest.RequireAllColumns)
		assert.Contains(t, v.Issues, "file contains no data")
	})
}

func TestToFrame(t *testing.T) {
	tbl, err := ingest.ReadTable("run.csv", strings.NewReader("t,a,b\n2,20,2\n0,0,\n1,10,1\nNaN,5,5\n"), 0)
	require.NoError(t, err)

	f, err := ingest.ToFrame(tbl, "t", []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, f.Time)
	assert.Equal(t, []float64{10, 20}, f.Columns["a"])
	assert.Equal(t, domain.TimeRange{Min: 1, Max: 2}, f.TimeRange())

	f, err = ingest.ToFrame(tbl, "t", []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, 3, f.Len())

	_, err = ingest.ToFrame(tbl, "t", []string{"zzz"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestPreview(t *testing.T) {
	p, err := ingest.Preview("run.csv", strings.NewReader("t,a,b,note\n0,1,2,x\n1,3,,y\n2,5,6,z\n"), pressureType(), 2)
	require.NoError(t, err)

	assert.Equal(t, 2, p.FileInfo.RowsPreview)
	assert.Equal(t, 4, p.FileInfo.TotalColumns)
	assert.True(t, p.Validation.IsValid)
	assert.Len(t, p.DataPreview, 2)
	assert.Equal(t, 1.0, p.DataPreview[0]["a"])
	assert.Nil(t, p.DataPreview[1]["b"])
	assert.Equal(t, "text", p.ColumnInfo["note"].Type)
	assert.Equal(t, 1, p.ColumnInfo["b"].NonNullCount)
}
