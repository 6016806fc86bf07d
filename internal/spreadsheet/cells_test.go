package spreadsheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMonthOfSheet(t *testing.T) {
	tests := []struct {
		name        string
		year, month int
		ok          bool
	}{
		{"2024-01", 2024, 1, true},
		{"1999-12", 1999, 12, true},
		{"2024-02 kred", 0, 0, false},
		{"2024-2", 0, 0, false},
		{"2024-13", 0, 0, false},
		{"2024-00", 0, 0, false},
		{" 2024-01", 0, 0, false},
		{"Kategorije", 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			y, m, ok := monthOfSheet(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.year, y)
			assert.Equal(t, tt.month, m)
		})
	}
}

func TestResolveDate(t *testing.T) {
	tests := []struct {
		raw       string
		want      string
		defaulted bool
	}{
		{"45296", "2024-01-05", false},
		{"45296.75", "2024-01-05", false},
		{"2024-01-31", "2024-01-31", false},
		{"2024-01-31 18:30:00", "2024-01-31", false},
		{"31.01.2024.", "2024-01-31", false},
		{"31.01.2024", "2024-01-31", false},
		{"3.1.2024", "2024-01-03", false},
		{"03/01/2024", "2024-01-03", false},
		{"2024/01/03", "2024-01-03", false},
		{"", "2024-01-01", true},
		{"0", "2024-01-01", true},
		{"-4", "2024-01-01", true},
		{"yesterday", "2024-01-01", true},
		{"31.02.2024", "2024-01-01", true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, defaulted := resolveDate(tt.raw, 2024, 1)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.defaulted, defaulted)
		})
	}
}

func TestCellAt(t *testing.T) {
	row := []string{" a ", "b"}
	assert.Equal(t, "a", cellAt(row, 0))
	assert.Equal(t, "b", cellAt(row, 1))
	assert.Equal(t, "", cellAt(row, 2))
	assert.Equal(t, "", cellAt(row, noColumn))
}
