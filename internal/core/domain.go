package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date format used throughout an import document.
const DateLayout = "2006-01-02"

type (
	// ImportDocument is the canonical, format-independent representation of a
	// spreadsheet. It is built once per import attempt and consumed once.
	ImportDocument struct {
		Categories []string     `json:"categories"`
		Months     []MonthEntry `json:"months"`
	}

	MonthEntry struct {
		Year     int             `json:"year"`
		Month    int             `json:"month"` // 1-12
		Salary   decimal.Decimal `json:"salary"`
		Expenses []ExpenseEntry  `json:"expenses"`
		Incomes  []IncomeEntry   `json:"incomes"`
	}

	ExpenseEntry struct {
		ItemName     string          `json:"itemName"`
		Amount       decimal.Decimal `json:"amount"`
		CategoryName string          `json:"categoryName"`
		Vendor       string          `json:"vendor,omitempty"`
		ExpenseDate  string          `json:"expenseDate"`
		Comment      string          `json:"comment,omitempty"`
	}

	IncomeEntry struct {
		Source     string          `json:"source"`
		Amount     decimal.Decimal `json:"amount"`
		IncomeDate string          `json:"incomeDate"`
		Comment    string          `json:"comment,omitempty"`
	}
)

// FirstOfMonth returns the first calendar day of the entry's month.
func (m MonthEntry) FirstOfMonth() time.Time {
	return time.Date(m.Year, time.Month(m.Month), 1, 0, 0, 0, 0, time.UTC)
}

// Less orders month entries ascending by (year, month).
func (m MonthEntry) Less(other MonthEntry) bool {
	if m.Year != other.Year {
		return m.Year < other.Year
	}
	return m.Month < other.Month
}

// FormatDate renders t as a document date string.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a document date string. Time components are rejected.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}
