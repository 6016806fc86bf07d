package spreadsheet

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"finanze/internal/core"
)

var monthSheetPattern = regexp.MustCompile(`^(\d{4})-(\d{2})$`)

// textDateLayouts are tried in order for date cells stored as text.
var textDateLayouts = []string{
	core.DateLayout,
	"2006-01-02 15:04:05",
	"02.01.2006.",
	"02.01.2006",
	"2.1.2006.",
	"2.1.2006",
	"02/01/2006",
	"2006/01/02",
}

// monthOfSheet reports the year and month a sheet name stands for. Only the
// strict YYYY-MM form with a real month qualifies.
func monthOfSheet(name string) (year, month int, ok bool) {
	m := monthSheetPattern.FindStringSubmatch(name)
	if m == nil {
		return 0, 0, false
	}
	year, _ = strconv.Atoi(m[1])
	month, _ = strconv.Atoi(m[2])
	if month < 1 || month > 12 {
		return 0, 0, false
	}
	return year, month, true
}

// cellAt returns the trimmed value at a zero-based column, "" when the row is
// shorter or the layout has no such column.
func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseCellDate decodes a date cell. Numeric cells are spreadsheet date
// serials, anything else is tried as text. ok is false when no date could be
// read.
func parseCellDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		if serial <= 0 {
			return time.Time{}, false
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, false
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
	}
	for _, layout := range textDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// resolveDate returns the document date for a cell, defaulting to the first of
// the sheet's month. defaulted is true when the fallback was used.
func resolveDate(raw string, year, month int) (date string, defaulted bool) {
	if t, ok := parseCellDate(raw); ok {
		return core.FormatDate(t), false
	}
	return core.FormatDate(core.MonthEntry{Year: year, Month: month}.FirstOfMonth()), true
}
