package core

// validate.go applies the field-level business rules to a mapped row.
//
// The four rules run in a fixed order and every failure is collected, so
// the validation table can show a row's full problem list at once. The
// same rules run again server-side at commit time; client verdicts are
// audited, never trusted alone.

import "strings"

// Validation reasons, in rule order. These strings travel to the client
// in skip ledgers, so they are part of the wire contract.
const (
	ReasonMissingShipper    = "Missing shipper name"
	ReasonZeroRevenue       = "Revenue is zero"
	ReasonNegativeProfit    = "Negative profitability"
	ReasonProfitOverHundred = "Profitability exceeds 100%"
)

// ValidationResult is the verdict for one row.
type ValidationResult struct {
	HasError bool
	Reasons  []string
}

// ValidateRow checks a mapped row against the import rules.
// Pure: the row is not modified, and re-running on the same row always
// produces the same verdict.
func ValidateRow(row MappedRow) ValidationResult {
	var reasons []string

	if strings.TrimSpace(row.ShipperName) == "" {
		reasons = append(reasons, ReasonMissingShipper)
	}
	if row.RevenueInCurrency == 0 {
		reasons = append(reasons, ReasonZeroRevenue)
	}
	if row.ProfitabilityRatio < 0 {
		reasons = append(reasons, ReasonNegativeProfit)
	}
	if row.ProfitabilityRatio > 1 {
		reasons = append(reasons, ReasonProfitOverHundred)
	}

	return ValidationResult{HasError: len(reasons) > 0, Reasons: reasons}
}

// revalidate returns a copy of row with its error flag and reasons
// refreshed from the current field values.
func revalidate(row MappedRow) MappedRow {
	verdict := ValidateRow(row)
	row.HasError = verdict.HasError
	row.ErrorReasons = verdict.Reasons
	return row
}
