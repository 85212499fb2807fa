// Package workbook reads and writes the proposals register: an xlsx sheet
// with a fixed header row, a TPN identifier column somewhere left of the
// output span, and output columns L..AB filled by extraction.
package workbook

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/proposal-extractor/constants"
	"github.com/joseph-ayodele/proposal-extractor/internal/common"
	"github.com/joseph-ayodele/proposal-extractor/internal/schema"
)

// Workbook wraps one open register. All mutation happens in memory; nothing
// reaches disk until SaveAs.
type Workbook struct {
	f         *excelize.File
	sheet     string
	headerRow int
	tpnCol    int // 1-based, located on the header row
	log       *slog.Logger
}

// Row is one data row of the register.
type Row struct {
	Number int    // 1-based spreadsheet row
	TPN    string // normalized identifier, "" when the cell is blank
}

// Open loads the register at path. An empty sheet name means the active
// sheet. The TPN column is located by label on the header row, searched left
// of the output span only.
func Open(path, sheet, tpnHeader string, headerRow int, logger *slog.Logger) (*Workbook, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if headerRow < 1 {
		return nil, common.NewAppError("WORKBOOK_ERROR", "header row must be at least 1", common.ErrInvalidInput)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook %s: %w", common.ErrFatalSetup, path, err)
	}
	if sheet == "" {
		sheet = f.GetSheetName(f.GetActiveSheetIndex())
	}
	w := &Workbook{f: f, sheet: sheet, headerRow: headerRow, log: logger}
	if err := w.locateTPNColumn(tpnHeader); err != nil {
		_ = f.Close()
		return nil, err
	}
	logger.Info("workbook.open.ok", "path", path, "sheet", sheet, "tpn_col", w.tpnCol)
	return w, nil
}

func (w *Workbook) locateTPNColumn(header string) error {
	rows, err := w.f.GetRows(w.sheet)
	if err != nil {
		return fmt.Errorf("%w: read sheet %s: %w", common.ErrFatalSetup, w.sheet, err)
	}
	if len(rows) < w.headerRow {
		return fmt.Errorf("%w: sheet %s has no header row %d", common.ErrFatalSetup, w.sheet, w.headerRow)
	}
	want := schema.Normalize(header)
	hdr := rows[w.headerRow-1]
	limit := len(hdr)
	if limit > constants.FirstOutputCol-1 {
		limit = constants.FirstOutputCol - 1
	}
	for i := 0; i < limit; i++ {
		if schema.Normalize(hdr[i]) == want {
			w.tpnCol = i + 1
			return nil
		}
	}
	last, _ := excelize.ColumnNumberToName(constants.FirstOutputCol - 1)
	return fmt.Errorf("%w: header %q not found in columns A..%s of row %d",
		common.ErrFatalSetup, header, last, w.headerRow)
}

// Rows lists the data rows in sheet order with TPNs already normalized.
// Rows above and on the header row are never returned.
func (w *Workbook) Rows() ([]Row, error) {
	rows, err := w.f.GetRows(w.sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", w.sheet, err)
	}
	var out []Row
	for i := w.headerRow; i < len(rows); i++ {
		cells := rows[i]
		tpn := ""
		if len(cells) >= w.tpnCol {
			tpn = NormalizeTPN(cells[w.tpnCol-1])
		}
		out = append(out, Row{Number: i + 1, TPN: tpn})
	}
	return out, nil
}

// WriteRow fills the output columns of one row in schema order. Every field
// gets a cell write, including empty values, so a written row is never
// partially aligned.
func (w *Workbook) WriteRow(rowNum int, s *schema.ExtractionSchema, values map[string]string) error {
	for i, f := range s.Fields {
		cell, err := excelize.CoordinatesToCellName(constants.FirstOutputCol+i, rowNum)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := w.f.SetCellValue(w.sheet, cell, values[f.Name]); err != nil {
			return fmt.Errorf("set %s: %w", cell, err)
		}
	}
	return nil
}

// RowFilled reports whether any of the row's first fieldCount output columns
// already holds a value, which lets a rerun skip work that is done.
func (w *Workbook) RowFilled(rowNum, fieldCount int) (bool, error) {
	for i := 0; i < fieldCount; i++ {
		cell, err := excelize.CoordinatesToCellName(constants.FirstOutputCol+i, rowNum)
		if err != nil {
			return false, fmt.Errorf("cell name: %w", err)
		}
		v, err := w.f.GetCellValue(w.sheet, cell)
		if err != nil {
			return false, fmt.Errorf("get %s: %w", cell, err)
		}
		if strings.TrimSpace(v) != "" {
			return true, nil
		}
	}
	return false, nil
}

// SaveAs writes the workbook to path, widening the output columns first so
// the extracted text is readable without manual resizing.
func (w *Workbook) SaveAs(path string) error {
	start := time.Now()
	first, _ := excelize.ColumnNumberToName(constants.FirstOutputCol)
	last, _ := excelize.ColumnNumberToName(constants.LastOutputCol)
	_ = w.f.SetColWidth(w.sheet, first, last, 18)
	if err := w.f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	w.log.Info("workbook.save.ok", "path", path, "elapsed_ms", time.Since(start).Milliseconds())
	return nil
}

func (w *Workbook) Close() error { return w.f.Close() }

// Sheet returns the sheet the workbook operates on.
func (w *Workbook) Sheet() string { return w.sheet }

// NormalizeTPN renders a TPN cell as the token used in filenames. Numeric
// cells surface as floats ("135236.0"), so an all-zero fraction is dropped.
// Anything else, including zero-padded or alphanumeric identifiers, passes
// through untouched.
func NormalizeTPN(cell string) string {
	s := strings.TrimSpace(cell)
	i := strings.IndexByte(s, '.')
	if i <= 0 {
		return s
	}
	frac := s[i+1:]
	if frac == "" || strings.Trim(frac, "0") != "" || !isDigits(s[:i]) {
		return s
	}
	return s[:i]
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
