// Package money handles INR amounts stored as paise (rupees x 100).
//
// Storage is integer-exact in minor units; display uses Indian
// abbreviations: Cr (crore, 10M rupees) and L (lakh, 100K rupees).
package money

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// enIN renders plain amounts with Indian digit grouping (1,23,456).
var enIN = message.NewPrinter(language.MustParse("en-IN"))

// RupeesToPaise converts a major-unit decimal amount to integer paise.
func RupeesToPaise(rupees float64) int64 {
	return int64(math.Round(rupees * 100))
}

// PaiseToRupees converts integer paise back to a major-unit decimal.
func PaiseToRupees(paise int64) float64 {
	return float64(paise) / 100
}

// ProfitPaise derives the profit in paise from revenue in paise and a
// profitability ratio (0.16 = 16%).
func ProfitPaise(revenuePaise int64, ratio float64) int64 {
	return int64(math.Round(float64(revenuePaise) * ratio))
}

// FormatINR formats a paise amount for display: "₹ 1.2 Cr", "₹ 5.4 L",
// or "₹ 12,345" with Indian grouping for smaller amounts.
func FormatINR(paise int64) string {
	rupees := PaiseToRupees(paise)

	switch {
	case rupees >= 1e7:
		return fmt.Sprintf("₹ %.1f Cr", rupees/1e7)
	case rupees >= 1e5:
		return fmt.Sprintf("₹ %.1f L", rupees/1e5)
	default:
		return enIN.Sprintf("₹ %d", int64(math.Round(rupees)))
	}
}
