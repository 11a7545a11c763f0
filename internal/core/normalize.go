package core

// normalize.go converts raw cell values into canonical numeric types.
//
// These functions handle the messy reality of user-provided spreadsheet
// data: currency symbols, Indian-style thousands separators, percent signs,
// stray whitespace, and Excel formula artifacts. Unparsable input yields 0
// so a bad cell becomes a validation failure on the row rather than an
// abort of the whole import.
//
// Each raw value must be normalized exactly once. ParseRatio rescales any
// value above 1 (16 -> 0.16), so feeding an already-normalized ratio back
// through it is only safe when the value is <= 1.

import (
	"strconv"
	"strings"
)

// currencyStripper removes currency symbols, thousands separators and
// whitespace ahead of decimal parsing.
var currencyStripper = strings.NewReplacer(
	"₹", "", // Rupee
	"$", "",
	"€", "", // Euro
	"£", "", // Pound
	",", "",
	" ", "",
	"\t", "",
	" ", "", // No-break space, common in exported sheets
)

// ratioStripper removes percent signs, separators and whitespace.
var ratioStripper = strings.NewReplacer(
	"%", "",
	",", "",
	" ", "",
	"\t", "",
	" ", "",
)

// ParseCurrency converts a cell into a major-unit decimal amount.
// Numeric cells pass through unchanged; string cells are stripped of
// currency symbols and separators and parsed. Unparsable input yields 0.
func ParseCurrency(c Cell) float64 {
	if c.Kind == CellNumber {
		return c.Num
	}
	cleaned := currencyStripper.Replace(CleanCell(c.Str))
	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return n
}

// ParseRatio converts a cell into a ratio in [0,1] territory.
// Values above 1 are treated as whole-number percentages: 16 -> 0.16.
// Values at or below 1 are already ratios and pass through.
// Unparsable input yields 0.
func ParseRatio(c Cell) float64 {
	if c.Kind == CellNumber {
		return rescaleRatio(c.Num)
	}
	cleaned := ratioStripper.Replace(CleanCell(c.Str))
	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return rescaleRatio(n)
}

// rescaleRatio applies the whole-number-percentage rule.
func rescaleRatio(n float64) float64 {
	if n > 1 {
		return n / 100
	}
	return n
}

// CleanCell removes common spreadsheet artifacts from a cell value:
// surrounding whitespace, an Excel formula prefix (="value"), and
// surrounding quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	s = strings.Trim(s, `"'`)

	return strings.TrimSpace(s)
}

// formatNumber renders a float the way spreadsheet tools display it,
// without trailing zeros.
func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}
