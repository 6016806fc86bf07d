package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Summary is a compact preview of a document shown before the owner confirms
// a destructive import.
type Summary struct {
	CategoryCount int             `json:"categoryCount"`
	MonthCount    int             `json:"monthCount"`
	ExpenseCount  int             `json:"expenseCount"`
	IncomeCount   int             `json:"incomeCount"`
	SalaryTotal   decimal.Decimal `json:"salaryTotal"`
	ExpenseTotal  decimal.Decimal `json:"expenseTotal"`
	IncomeTotal   decimal.Decimal `json:"incomeTotal"`
}

// Summarize counts and totals the contents of d.
func (d *ImportDocument) Summarize() Summary {
	s := Summary{
		CategoryCount: len(d.Categories),
		MonthCount:    len(d.Months),
	}
	for _, m := range d.Months {
		s.SalaryTotal = s.SalaryTotal.Add(m.Salary)
		s.ExpenseCount += len(m.Expenses)
		s.IncomeCount += len(m.Incomes)
		for _, e := range m.Expenses {
			s.ExpenseTotal = s.ExpenseTotal.Add(e.Amount)
		}
		for _, i := range m.Incomes {
			s.IncomeTotal = s.IncomeTotal.Add(i.Amount)
		}
	}
	return s
}

// Warning describes data that was skipped or normalized instead of rejected.
// Row is 1-based and zero when the warning is not tied to a row.
type Warning struct {
	Sheet  string `json:"sheet,omitempty"`
	Row    int    `json:"row,omitempty"`
	Reason string `json:"reason"`
}

func (w Warning) String() string {
	switch {
	case w.Sheet != "" && w.Row > 0:
		return fmt.Sprintf("%s row %d: %s", w.Sheet, w.Row, w.Reason)
	case w.Sheet != "":
		return fmt.Sprintf("%s: %s", w.Sheet, w.Reason)
	default:
		return w.Reason
	}
}

// ImportResult reports what an import actually persisted. Expense counts can
// be lower than the document totals; Skipped lists the dropped rows.
type ImportResult struct {
	CategoriesCreated int       `json:"categoriesCreated"`
	MonthsCreated     int       `json:"monthsCreated"`
	ExpensesCreated   int       `json:"expensesCreated"`
	IncomesCreated    int       `json:"incomesCreated"`
	Skipped           []Warning `json:"skipped,omitempty"`
}
