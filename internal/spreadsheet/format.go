package spreadsheet

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrUnknownFormat is returned for a format token outside the known set.
var ErrUnknownFormat = errors.New("unknown import format")

// Format selects the column/row layout of month sheets.
type Format string

const (
	FormatStandard Format = "standard"
	FormatDetailed Format = "detailed"
	FormatLegacy   Format = "legacy"
)

// noColumn marks a column the layout does not have.
const noColumn = -1

type expenseColumns struct {
	Item, Amount, Category, Vendor, Date, Comment int
}

type incomeColumns struct {
	Source, Amount, Date, Comment int
}

// Profile is the full layout description of one format. Column indexes are
// zero-based; StartRow is the 1-based first data row of every month sheet.
type Profile struct {
	Format     Format
	SalaryCell string
	StartRow   int
	Expense    expenseColumns
	// Income is nil when the layout carries no incomes.
	Income *incomeColumns
	// DefaultCategory is used for every expense when the layout has no
	// category column. Empty means the fallback category.
	DefaultCategory string
}

func (p Profile) hasCategoryColumn() bool {
	return p.Expense.Category != noColumn
}

var profiles = map[Format]Profile{
	FormatStandard: {
		Format:     FormatStandard,
		SalaryCell: "B1",
		StartRow:   3,
		Expense: expenseColumns{
			Date: col("A"), Item: col("B"), Amount: col("C"),
			Category: col("D"), Vendor: col("E"), Comment: col("F"),
		},
		Income: &incomeColumns{
			Date: col("H"), Source: col("I"), Amount: col("J"), Comment: col("K"),
		},
	},
	FormatDetailed: {
		Format:     FormatDetailed,
		SalaryCell: "C2",
		StartRow:   5,
		Expense: expenseColumns{
			Item: col("A"), Category: col("B"), Vendor: col("C"),
			Amount: col("D"), Date: col("E"), Comment: col("F"),
		},
		Income: &incomeColumns{
			Source: col("H"), Amount: col("I"), Date: col("J"), Comment: col("K"),
		},
	},
	FormatLegacy: {
		Format:     FormatLegacy,
		SalaryCell: "E1",
		StartRow:   2,
		Expense: expenseColumns{
			Item: col("A"), Amount: col("B"), Date: col("C"), Comment: col("D"),
			Category: noColumn, Vendor: noColumn,
		},
	},
}

// ProfileFor returns the layout of f.
func ProfileFor(f Format) (Profile, error) {
	p, ok := profiles[f]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
	}
	return p, nil
}

// ParseFormat maps a user-supplied token to a Format, case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := profiles[f]; !ok {
		return "", fmt.Errorf("%w: %q (known: %s)", ErrUnknownFormat, s, strings.Join(FormatNames(), ", "))
	}
	return f, nil
}

// FormatNames lists the known format tokens, sorted.
func FormatNames() []string {
	names := make([]string, 0, len(profiles))
	for f := range profiles {
		names = append(names, string(f))
	}
	sort.Strings(names)
	return names
}

func col(name string) int {
	n, err := excelize.ColumnNameToNumber(name)
	if err != nil {
		panic(err)
	}
	return n - 1
}
