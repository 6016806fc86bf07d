package spreadsheet

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Workbook is the read-only view of a spreadsheet the parser scans. Cell
// values are raw: numbers (including date serials) come back unformatted.
type Workbook interface {
	// SheetNames returns the sheet names in workbook order.
	SheetNames() []string
	// Rows returns the populated rows of a sheet. Trailing empty cells may be omitted.
	Rows(sheet string) ([][]string, error)
	// Cell returns the value at an A1-style reference, "" when empty.
	Cell(sheet, ref string) (string, error)
}

// XLSXWorkbook reads an Office Open XML spreadsheet through excelize.
type XLSXWorkbook struct {
	f *excelize.File
}

var _ Workbook = (*XLSXWorkbook)(nil)

// OpenXLSX opens an in-memory xlsx document.
func OpenXLSX(data []byte) (*XLSXWorkbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	return &XLSXWorkbook{f: f}, nil
}

func (w *XLSXWorkbook) SheetNames() []string {
	return w.f.GetSheetList()
}

func (w *XLSXWorkbook) Rows(sheet string) ([][]string, error) {
	return w.f.GetRows(sheet, excelize.Options{RawCellValue: true})
}

func (w *XLSXWorkbook) Cell(sheet, ref string) (string, error) {
	return w.f.GetCellValue(sheet, ref, excelize.Options{RawCellValue: true})
}

func (w *XLSXWorkbook) Close() error {
	return w.f.Close()
}

// MemoryWorkbook holds sheet values already fetched from elsewhere, such as a
// Google Sheets value range.
type MemoryWorkbook struct {
	order  []string
	sheets map[string][][]string
}

var _ Workbook = (*MemoryWorkbook)(nil)

func NewMemoryWorkbook() *MemoryWorkbook {
	return &MemoryWorkbook{sheets: make(map[string][][]string)}
}

// AddSheet appends a sheet, replacing the rows of an existing one with the same name.
func (w *MemoryWorkbook) AddSheet(name string, rows [][]string) {
	if _, exists := w.sheets[name]; !exists {
		w.order = append(w.order, name)
	}
	w.sheets[name] = rows
}

func (w *MemoryWorkbook) SheetNames() []string {
	return append([]string(nil), w.order...)
}

func (w *MemoryWorkbook) Rows(sheet string) ([][]string, error) {
	rows, ok := w.sheets[sheet]
	if !ok {
		return nil, fmt.Errorf("sheet %s does not exist", sheet)
	}
	return rows, nil
}

func (w *MemoryWorkbook) Cell(sheet, ref string) (string, error) {
	rows, ok := w.sheets[sheet]
	if !ok {
		return "", fmt.Errorf("sheet %s does not exist", sheet)
	}
	col, row, err := excelize.CellNameToCoordinates(ref)
	if err != nil {
		return "", err
	}
	if row > len(rows) || col > len(rows[row-1]) {
		return "", nil
	}
	return rows[row-1][col-1], nil
}
