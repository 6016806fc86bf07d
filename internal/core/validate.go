package core

import (
	"errors"
	"fmt"
	"strings"
)

const (
	MinYear = 1900
	MaxYear = 2100
)

var (
	ErrNoCategories      = errors.New("document has no categories")
	ErrNoMonths          = errors.New("document has no months")
	ErrEmptyCategory     = errors.New("empty category name")
	ErrDuplicateCategory = errors.New("duplicate category name")
	ErrInvalidYear       = fmt.Errorf("year must be between %d and %d", MinYear, MaxYear)
	ErrInvalidMonth      = errors.New("month must be between 1 and 12")
	ErrNegativeSalary    = errors.New("salary cannot be negative")
	ErrEmptyItemName     = errors.New("empty item name")
	ErrEmptySource       = errors.New("empty income source")
	ErrNonPositive       = errors.New("amount must be greater than zero")
	ErrInvalidDate       = errors.New("date must be a calendar date (YYYY-MM-DD)")
	ErrAmountTooLarge    = fmt.Errorf("amount must not exceed %s", MaxAmount)
)

// ValidationError is a structural problem found in an import document before
// any store mutation. Its message is meant to be shown to the owner as-is.
type ValidationError struct {
	Field string // e.g. months[2].expenses[4].amount
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(err error, format string, args ...any) *ValidationError {
	return &ValidationError{Field: fmt.Sprintf(format, args...), Err: err}
}

// Validate checks the structural rules of the document. It stops at the first
// problem and returns it as a *ValidationError.
func (d *ImportDocument) Validate() error {
	if d == nil || len(d.Categories) == 0 {
		return &ValidationError{Field: "categories", Err: ErrNoCategories}
	}
	seen := make(map[string]struct{}, len(d.Categories))
	for i, name := range d.Categories {
		if strings.TrimSpace(name) == "" {
			return invalid(ErrEmptyCategory, "categories[%d]", i)
		}
		// names are unique per owner in the store, compared as written
		if _, dup := seen[name]; dup {
			return invalid(ErrDuplicateCategory, "categories[%d]", i)
		}
		seen[name] = struct{}{}
	}
	if len(d.Months) == 0 {
		return &ValidationError{Field: "months", Err: ErrNoMonths}
	}

	for i, m := range d.Months {
		if err := m.validate(i); err != nil {
			return err
		}
	}
	return nil
}

func (m MonthEntry) validate(i int) error {
	if m.Year < MinYear || m.Year > MaxYear {
		return invalid(ErrInvalidYear, "months[%d].year", i)
	}
	if m.Month < 1 || m.Month > 12 {
		return invalid(ErrInvalidMonth, "months[%d].month", i)
	}
	if m.Salary.IsNegative() {
		return invalid(ErrNegativeSalary, "months[%d] (%04d-%02d).salary", i, m.Year, m.Month)
	}
	if !withinMaxAmount(m.Salary) {
		return invalid(ErrAmountTooLarge, "months[%d] (%04d-%02d).salary", i, m.Year, m.Month)
	}

	for j, e := range m.Expenses {
		if strings.TrimSpace(e.ItemName) == "" {
			return invalid(ErrEmptyItemName, "months[%d] (%04d-%02d).expenses[%d].itemName", i, m.Year, m.Month, j)
		}
		if !RoundMoney(e.Amount).IsPositive() {
			return invalid(ErrNonPositive, "months[%d] (%04d-%02d).expenses[%d].amount", i, m.Year, m.Month, j)
		}
		if !withinMaxAmount(e.Amount) {
			return invalid(ErrAmountTooLarge, "months[%d] (%04d-%02d).expenses[%d].amount", i, m.Year, m.Month, j)
		}
		if _, err := ParseDate(e.ExpenseDate); err != nil {
			return invalid(ErrInvalidDate, "months[%d] (%04d-%02d).expenses[%d].expenseDate", i, m.Year, m.Month, j)
		}
	}
	for j, in := range m.Incomes {
		if strings.TrimSpace(in.Source) == "" {
			return invalid(ErrEmptySource, "months[%d] (%04d-%02d).incomes[%d].source", i, m.Year, m.Month, j)
		}
		if !RoundMoney(in.Amount).IsPositive() {
			return invalid(ErrNonPositive, "months[%d] (%04d-%02d).incomes[%d].amount", i, m.Year, m.Month, j)
		}
		if !withinMaxAmount(in.Amount) {
			return invalid(ErrAmountTooLarge, "months[%d] (%04d-%02d).incomes[%d].amount", i, m.Year, m.Month, j)
		}
		if _, err := ParseDate(in.IncomeDate); err != nil {
			return invalid(ErrInvalidDate, "months[%d] (%04d-%02d).incomes[%d].incomeDate", i, m.Year, m.Month, j)
		}
	}
	return nil
}
