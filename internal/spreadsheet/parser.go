// Package spreadsheet turns personal finance workbooks into the canonical
// import document.
//
// A workbook has one category sheet and one sheet per month named YYYY-MM.
// Month sheets follow one of a small set of layouts (see Format). Parsing is
// tolerant: blank or broken rows are skipped, unknown categories fall back to
// a catch-all category and unreadable dates default to the first of the month.
// Everything that was skipped or normalized is reported as a warning.
package spreadsheet

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"finanze/internal/core"
)

const (
	// CategorySheet holds one category name per row in column A.
	CategorySheet = "Kategorije"
	// FallbackCategory receives every expense whose category cannot be resolved.
	FallbackCategory = "Ostalo"
)

// ErrUnreadableDocument is the only hard parse failure: the bytes are not a
// spreadsheet, or a sheet cannot be read.
var ErrUnreadableDocument = errors.New("unreadable spreadsheet document")

// Result is the parsed document plus what the owner sees before confirming.
type Result struct {
	Document *core.ImportDocument `json:"document"`
	Summary  core.Summary         `json:"summary"`
	Warnings []core.Warning       `json:"warnings"`
}

// Parse reads xlsx bytes laid out according to format.
func Parse(data []byte, format Format) (*Result, error) {
	if _, err := ProfileFor(format); err != nil {
		return nil, err
	}
	wb, err := OpenXLSX(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadableDocument, err)
	}
	defer wb.Close()

	return ParseWorkbook(wb, format)
}

// ParseWorkbook scans an already opened workbook.
func ParseWorkbook(wb Workbook, format Format) (*Result, error) {
	profile, err := ProfileFor(format)
	if err != nil {
		return nil, err
	}

	p := &parser{
		wb:       wb,
		profile:  profile,
		byName:   make(map[string]string),
		warnings: []core.Warning{},
	}
	if err := p.readCategories(); err != nil {
		return nil, err
	}

	var months []core.MonthEntry
	for _, name := range wb.SheetNames() {
		year, month, ok := monthOfSheet(name)
		if !ok {
			continue
		}
		entry, err := p.readMonth(name, year, month)
		if err != nil {
			return nil, err
		}
		months = append(months, entry)
	}
	sort.SliceStable(months, func(i, j int) bool { return months[i].Less(months[j]) })

	if len(p.categories) == 0 {
		p.ensureCategory(FallbackCategory)
	}

	doc := &core.ImportDocument{Categories: p.categories, Months: months}
	if doc.Months == nil {
		doc.Months = []core.MonthEntry{}
	}
	return &Result{
		Document: doc,
		Summary:  doc.Summarize(),
		Warnings: p.warnings,
	}, nil
}

type parser struct {
	wb         Workbook
	profile    Profile
	categories []string
	// byName maps lower-cased category names to the first spelling seen.
	byName   map[string]string
	warnings []core.Warning
}

func (p *parser) warn(sheet string, row int, format string, args ...any) {
	p.warnings = append(p.warnings, core.Warning{Sheet: sheet, Row: row, Reason: fmt.Sprintf(format, args...)})
}

func (p *parser) readCategories() error {
	present := false
	for _, name := range p.wb.SheetNames() {
		if name == CategorySheet {
			present = true
			break
		}
	}
	if !present {
		p.warn("", 0, "sheet %q not found, using only %q", CategorySheet, FallbackCategory)
		return nil
	}

	rows, err := p.wb.Rows(CategorySheet)
	if err != nil {
		return fmt.Errorf("%w: read sheet %s: %w", ErrUnreadableDocument, CategorySheet, err)
	}
	seen := make(map[string]bool)
	for _, row := range rows {
		name := cellAt(row, 0)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		p.categories = append(p.categories, name)
		if _, ok := p.byName[strings.ToLower(name)]; !ok {
			p.byName[strings.ToLower(name)] = name
		}
	}
	return nil
}

// lookup resolves a category case-insensitively to its canonical spelling.
func (p *parser) lookup(name string) (string, bool) {
	canonical, ok := p.byName[strings.ToLower(name)]
	return canonical, ok
}

// ensureCategory makes sure name is part of the category list so expenses
// referencing it resolve at load time.
func (p *parser) ensureCategory(name string) string {
	if canonical, ok := p.lookup(name); ok {
		return canonical
	}
	p.categories = append(p.categories, name)
	p.byName[strings.ToLower(name)] = name
	return name
}

func (p *parser) defaultCategory() string {
	if p.profile.DefaultCategory != "" {
		return p.ensureCategory(p.profile.DefaultCategory)
	}
	return p.ensureCategory(FallbackCategory)
}

func (p *parser) readMonth(sheet string, year, month int) (core.MonthEntry, error) {
	entry := core.MonthEntry{
		Year:     year,
		Month:    month,
		Salary:   p.readSalary(sheet),
		Expenses: []core.ExpenseEntry{},
		Incomes:  []core.IncomeEntry{},
	}

	rows, err := p.wb.Rows(sheet)
	if err != nil {
		return core.MonthEntry{}, fmt.Errorf("%w: read sheet %s: %w", ErrUnreadableDocument, sheet, err)
	}
	for i := p.profile.StartRow - 1; i < len(rows); i++ {
		rowNum := i + 1
		if e, ok := p.readExpense(sheet, rowNum, rows[i], year, month); ok {
			entry.Expenses = append(entry.Expenses, e)
		}
		if p.profile.Income != nil {
			if in, ok := p.readIncome(sheet, rowNum, rows[i], year, month); ok {
				entry.Incomes = append(entry.Incomes, in)
			}
		}
	}
	return entry, nil
}

func (p *parser) readSalary(sheet string) decimal.Decimal {
	raw, err := p.wb.Cell(sheet, p.profile.SalaryCell)
	if err != nil {
		p.warn(sheet, 0, "salary cell %s unreadable, using 0", p.profile.SalaryCell)
		return decimal.Zero
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero
	}
	salary, err := core.ParseAmount(raw)
	if err != nil {
		p.warn(sheet, 0, "salary %q is not a number, using 0", raw)
		return decimal.Zero
	}
	if salary.IsNegative() {
		p.warn(sheet, 0, "salary %s is negative, using 0", salary)
		return decimal.Zero
	}
	return salary
}

// readAmount reports whether raw is a usable positive amount, warning when a
// row with content has to be skipped because of it.
func (p *parser) readAmount(sheet string, row int, raw string) (decimal.Decimal, bool) {
	if raw == "" {
		p.warn(sheet, row, "amount is empty, row skipped")
		return decimal.Zero, false
	}
	amount, err := core.ParseAmount(raw)
	if err != nil {
		p.warn(sheet, row, "amount %q is not a number, row skipped", raw)
		return decimal.Zero, false
	}
	if !amount.IsPositive() {
		p.warn(sheet, row, "amount %s is not positive, row skipped", amount)
		return decimal.Zero, false
	}
	return amount, true
}

func (p *parser) readExpense(sheet string, row int, cells []string, year, month int) (core.ExpenseEntry, bool) {
	cols := p.profile.Expense
	item := cellAt(cells, cols.Item)
	rawAmount := cellAt(cells, cols.Amount)
	if item == "" {
		if rawAmount != "" {
			p.warn(sheet, row, "expense item name is empty, row skipped")
		}
		return core.ExpenseEntry{}, false
	}
	amount, ok := p.readAmount(sheet, row, rawAmount)
	if !ok {
		return core.ExpenseEntry{}, false
	}

	var categoryName string
	rawCategory := cellAt(cells, cols.Category)
	if !p.profile.hasCategoryColumn() {
		categoryName = p.defaultCategory()
	} else if canonical, ok := p.lookup(rawCategory); ok && rawCategory != "" {
		categoryName = canonical
	} else {
		if rawCategory != "" {
			p.warn(sheet, row, "unknown category %q, using %q", rawCategory, FallbackCategory)
		}
		categoryName = p.ensureCategory(FallbackCategory)
	}

	rawDate := cellAt(cells, cols.Date)
	date, defaulted := resolveDate(rawDate, year, month)
	if defaulted && rawDate != "" {
		p.warn(sheet, row, "date %q unreadable, using %s", rawDate, date)
	}

	return core.ExpenseEntry{
		ItemName:     item,
		Amount:       amount,
		CategoryName: categoryName,
		Vendor:       cellAt(cells, cols.Vendor),
		ExpenseDate:  date,
		Comment:      cellAt(cells, cols.Comment),
	}, true
}

func (p *parser) readIncome(sheet string, row int, cells []string, year, month int) (core.IncomeEntry, bool) {
	cols := p.profile.Income
	source := cellAt(cells, cols.Source)
	rawAmount := cellAt(cells, cols.Amount)
	if source == "" {
		if rawAmount != "" {
			p.warn(sheet, row, "income source is empty, row skipped")
		}
		return core.IncomeEntry{}, false
	}
	amount, ok := p.readAmount(sheet, row, rawAmount)
	if !ok {
		return core.IncomeEntry{}, false
	}

	rawDate := cellAt(cells, cols.Date)
	date, defaulted := resolveDate(rawDate, year, month)
	if defaulted && rawDate != "" {
		p.warn(sheet, row, "date %q unreadable, using %s", rawDate, date)
	}

	return core.IncomeEntry{
		Source:     source,
		Amount:     amount,
		IncomeDate: date,
		Comment:    cellAt(cells, cols.Comment),
	}, true
}
