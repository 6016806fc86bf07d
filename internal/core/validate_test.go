package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDocument() *ImportDocument {
	return &ImportDocument{
		Categories: []string{"Food"},
		Months: []MonthEntry{{
			Year:   2024,
			Month:  1,
			Salary: decimal.NewFromInt(2500),
			Expenses: []ExpenseEntry{{
				ItemName:     "Milk",
				Amount:       decimal.RequireFromString("3.5"),
				CategoryName: "Food",
				ExpenseDate:  "2024-01-05",
			}},
			Incomes: []IncomeEntry{{
				Source:     "Salary",
				Amount:     decimal.NewFromInt(2500),
				IncomeDate: "2024-01-10",
			}},
		}},
	}
}

func TestImportDocument_Validate(t *testing.T) {
	require.NoError(t, validDocument().Validate())

	tests := []struct {
		name   string
		mutate func(d *ImportDocument)
		want   error
		field  string
	}{
		{"no categories", func(d *ImportDocument) { d.Categories = nil }, ErrNoCategories, "categories"},
		{"blank category", func(d *ImportDocument) { d.Categories = []string{"Food", " "} }, ErrEmptyCategory, "categories[1]"},
		{"duplicate category", func(d *ImportDocument) { d.Categories = []string{"Food", "Home", "Food"} }, ErrDuplicateCategory, "categories[2]"},
		{"no months", func(d *ImportDocument) { d.Months = nil }, ErrNoMonths, "months"},
		{"year too small", func(d *ImportDocument) { d.Months[0].Year = 1200 }, ErrInvalidYear, "months[0].year"},
		{"month zero", func(d *ImportDocument) { d.Months[0].Month = 0 }, ErrInvalidMonth, "months[0].month"},
		{"month thirteen", func(d *ImportDocument) { d.Months[0].Month = 13 }, ErrInvalidMonth, "months[0].month"},
		{"negative salary", func(d *ImportDocument) { d.Months[0].Salary = decimal.NewFromInt(-1) }, ErrNegativeSalary, "months[0] (2024-01).salary"},
		{"salary too large", func(d *ImportDocument) { d.Months[0].Salary = decimal.RequireFromString("1e20") }, ErrAmountTooLarge, "months[0] (2024-01).salary"},
		{"empty item", func(d *ImportDocument) { d.Months[0].Expenses[0].ItemName = "" }, ErrEmptyItemName, "months[0] (2024-01).expenses[0].itemName"},
		{"zero amount", func(d *ImportDocument) { d.Months[0].Expenses[0].Amount = decimal.Zero }, ErrNonPositive, "months[0] (2024-01).expenses[0].amount"},
		{"amount rounds to zero", func(d *ImportDocument) { d.Months[0].Expenses[0].Amount = decimal.RequireFromString("0.001") }, ErrNonPositive, "months[0] (2024-01).expenses[0].amount"},
		{"expense too large", func(d *ImportDocument) { d.Months[0].Expenses[0].Amount = MaxAmount.Add(decimal.NewFromInt(1)) }, ErrAmountTooLarge, "months[0] (2024-01).expenses[0].amount"},
		{"bad expense date", func(d *ImportDocument) { d.Months[0].Expenses[0].ExpenseDate = "05.01.2024" }, ErrInvalidDate, "months[0] (2024-01).expenses[0].expenseDate"},
		{"date with time", func(d *ImportDocument) { d.Months[0].Expenses[0].ExpenseDate = "2024-01-05T10:00:00Z" }, ErrInvalidDate, "months[0] (2024-01).expenses[0].expenseDate"},
		{"empty source", func(d *ImportDocument) { d.Months[0].Incomes[0].Source = "  " }, ErrEmptySource, "months[0] (2024-01).incomes[0].source"},
		{"negative income", func(d *ImportDocument) { d.Months[0].Incomes[0].Amount = decimal.NewFromInt(-5) }, ErrNonPositive, "months[0] (2024-01).incomes[0].amount"},
		{"income rounds to zero", func(d *ImportDocument) { d.Months[0].Incomes[0].Amount = decimal.RequireFromString("0.004") }, ErrNonPositive, "months[0] (2024-01).incomes[0].amount"},
		{"income too large", func(d *ImportDocument) { d.Months[0].Incomes[0].Amount = decimal.RequireFromString("1e20") }, ErrAmountTooLarge, "months[0] (2024-01).incomes[0].amount"},
		{"bad income date", func(d *ImportDocument) { d.Months[0].Incomes[0].IncomeDate = "" }, ErrInvalidDate, "months[0] (2024-01).incomes[0].incomeDate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDocument()
			tt.mutate(d)

			err := d.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestImportDocument_ValidateBoundaries(t *testing.T) {
	d := validDocument()
	d.Categories = []string{"Food", "food"}
	d.Months[0].Salary = MaxAmount
	d.Months[0].Expenses[0].Amount = decimal.RequireFromString("0.005")
	require.NoError(t, d.Validate())
	assert.Equal(t, int64(1), ToCents(d.Months[0].Expenses[0].Amount))
	assert.Equal(t, int64(1_000_000_000_000_000), ToCents(d.Months[0].Salary))
}

func TestImportDocument_ValidateNil(t *testing.T) {
	var d *ImportDocument
	assert.ErrorIs(t, d.Validate(), ErrNoCategories)
}

func TestImportDocument_Summarize(t *testing.T) {
	d := validDocument()
	d.Months = append(d.Months, MonthEntry{Year: 2023, Month: 12, Salary: decimal.RequireFromString("100.10")})

	s := d.Summarize()
	assert.Equal(t, 1, s.CategoryCount)
	assert.Equal(t, 2, s.MonthCount)
	assert.Equal(t, 1, s.ExpenseCount)
	assert.Equal(t, 1, s.IncomeCount)
	assert.Equal(t, "2600.1", s.SalaryTotal.String())
	assert.Equal(t, "3.5", s.ExpenseTotal.String())
	assert.Equal(t, "2500", s.IncomeTotal.String())
}

func TestWarning_String(t *testing.T) {
	assert.Equal(t, "2024-01 row 4: amount is empty", Warning{Sheet: "2024-01", Row: 4, Reason: "amount is empty"}.String())
	assert.Equal(t, "2024-01: salary defaulted to 0", Warning{Sheet: "2024-01", Reason: "salary defaulted to 0"}.String())
	assert.Equal(t, "plain", Warning{Reason: "plain"}.String())
}
