// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts as they appear in
// hand-maintained spreadsheets and converting them to cents for storage.
package core

import (
	"errors"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned when a string cannot be read as a monetary amount.
var ErrInvalidAmount = errors.New("invalid amount")

// MaxAmount is the largest absolute amount accepted. Its value in cents fits
// an int64 with room to spare for monthly totals.
var MaxAmount = decimal.New(1, 13)

// currencyMarks are stripped before parsing. Longer marks first so "kn" does not
// eat part of "EUR" and vice versa.
var currencyMarks = []string{"EUR", "HRK", "kn", "€"}

// ParseAmount converts a spreadsheet amount string to a decimal rounded to cents.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. When both are
// present the last one is the decimal separator and the other one groups thousands.
// Currency marks and inner spaces are ignored. Negative values are returned as-is;
// callers decide whether they are acceptable. Values beyond MaxAmount are
// rejected with ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12.34")     -> 12.34
//	ParseAmount("12,345")    -> 12.35 (half-up)
//	ParseAmount("1.234,50")  -> 1234.50
//	ParseAmount("€ 1,234.5") -> 1234.50
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	for _, mark := range currencyMarks {
		s = strings.ReplaceAll(s, mark, "")
	}
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '\'' {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	d = RoundMoney(d)
	if !withinMaxAmount(d) {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

func withinMaxAmount(d decimal.Decimal) bool {
	return RoundMoney(d).Abs().LessThanOrEqual(MaxAmount)
}

// RoundMoney rounds d to two decimal places, half away from zero.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ToCents converts an amount to integer cents after rounding.
func ToCents(d decimal.Decimal) int64 {
	return RoundMoney(d).Shift(2).IntPart()
}

// FromCents converts integer cents back to a decimal amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
