package workbook

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/proposal-extractor/internal/common"
	"github.com/joseph-ayodele/proposal-extractor/internal/schema"
)

func testSchema() *schema.ExtractionSchema {
	return &schema.ExtractionSchema{Fields: []schema.Field{
		{Name: "ProjectTitle"},
		{Name: "Budget"},
		{Name: "StartDate"},
	}}
}

// buildRegister writes a minimal register fixture: header labels on row 5,
// TPN cells in column B from row 6 down.
func buildRegister(t *testing.T, tpnHeader string, tpns []string) string {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetCellValue(sheet, "A5", "S.No."))
	require.NoError(t, f.SetCellValue(sheet, "B5", tpnHeader))
	require.NoError(t, f.SetCellValue(sheet, "C5", "Institution"))
	for i, tpn := range tpns {
		cell, err := excelize.CoordinatesToCellName(2, 6+i)
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue(sheet, cell, tpn))
	}
	path := filepath.Join(t.TempDir(), "register.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
	return path
}

func TestOpenLocatesTPNColumn(t *testing.T) {
	path := buildRegister(t, "TPN No.", []string{"135236"})

	wb, err := Open(path, "", "TPN No.", 5, nil)
	require.NoError(t, err)
	defer wb.Close()

	assert.Equal(t, "Sheet1", wb.Sheet())
	assert.Equal(t, 2, wb.tpnCol)
}

func TestOpenMatchesHeaderLoosely(t *testing.T) {
	path := buildRegister(t, "tpn   no", []string{"135236"})

	wb, err := Open(path, "", "TPN No.", 5, nil)
	require.NoError(t, err)
	defer wb.Close()
	assert.Equal(t, 2, wb.tpnCol)
}

func TestOpenMissingHeader(t *testing.T) {
	path := buildRegister(t, "Reference", []string{"135236"})

	_, err := Open(path, "", "TPN No.", 5, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrFatalSetup)
	assert.Contains(t, err.Error(), "A..K")
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.xlsx"), "", "TPN No.", 5, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrFatalSetup)
}

func TestOpenHeaderRowBeyondSheet(t *testing.T) {
	path := buildRegister(t, "TPN No.", []string{"135236"})

	_, err := Open(path, "", "TPN No.", 50, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrFatalSetup)
	assert.Contains(t, err.Error(), "header row")
}

func TestRows(t *testing.T) {
	path := buildRegister(t, "TPN No.", []string{"135236", "135236.0", "", "007"})

	wb, err := Open(path, "", "TPN No.", 5, nil)
	require.NoError(t, err)
	defer wb.Close()

	rows, err := wb.Rows()
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, Row{Number: 6, TPN: "135236"}, rows[0])
	assert.Equal(t, Row{Number: 7, TPN: "135236"}, rows[1])
	assert.Equal(t, Row{Number: 8, TPN: ""}, rows[2])
	assert.Equal(t, Row{Number: 9, TPN: "007"}, rows[3])
}

func TestWriteRowAndReadBack(t *testing.T) {
	path := buildRegister(t, "TPN No.", []string{"135236"})
	out := filepath.Join(t.TempDir(), "out.xlsx")

	wb, err := Open(path, "", "TPN No.", 5, nil)
	require.NoError(t, err)
	defer wb.Close()

	s := testSchema()
	values := map[string]string{"ProjectTitle": "Alpha", "Budget": "50000", "StartDate": ""}
	require.NoError(t, wb.WriteRow(6, s, values))
	require.NoError(t, wb.SaveAs(out))

	f, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer f.Close()

	for cell, expected := range map[string]string{"L6": "Alpha", "M6": "50000", "N6": ""} {
		v, err := f.GetCellValue("Sheet1", cell)
		require.NoError(t, err)
		assert.Equal(t, expected, v, "cell %s", cell)
	}

	width, err := f.GetColWidth("Sheet1", "L")
	require.NoError(t, err)
	assert.Equal(t, 18.0, width)
}

func TestRowFilled(t *testing.T) {
	path := buildRegister(t, "TPN No.", []string{"135236"})

	wb, err := Open(path, "", "TPN No.", 5, nil)
	require.NoError(t, err)
	defer wb.Close()

	s := testSchema()

	filled, err := wb.RowFilled(6, s.Len())
	require.NoError(t, err)
	assert.False(t, filled)

	// Writing only empty strings still counts as unfilled
	require.NoError(t, wb.WriteRow(6, s, map[string]string{}))
	filled, err = wb.RowFilled(6, s.Len())
	require.NoError(t, err)
	assert.False(t, filled)

	require.NoError(t, wb.WriteRow(6, s, map[string]string{"Budget": "50000"}))
	filled, err = wb.RowFilled(6, s.Len())
	require.NoError(t, err)
	assert.True(t, filled)
}

func TestNormalizeTPN(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"135236", "135236"},
		{"135236.0", "135236"},
		{"135236.00", "135236"},
		{"135236.5", "135236.5"},
		{" 135236 ", "135236"},
		{"007", "007"},
		{"12.5", "12.5"},
		{"1e3", "1e3"},
		{"TPN-42", "TPN-42"},
		{"a.0", "a.0"},
		{".5", ".5"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, NormalizeTPN(tt.in), "input %q", tt.in)
	}
}
