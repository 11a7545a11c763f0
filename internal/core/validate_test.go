package core

import (
	"reflect"
	"testing"
)

func TestValidateRow(t *testing.T) {
	tests := []struct {
		name    string
		row     MappedRow
		reasons []string
	}{
		{
			name:    "valid row",
			row:     MappedRow{ShipperName: "Maersk", RevenueInCurrency: 213000, ProfitabilityRatio: 0.16},
			reasons: nil,
		},
		{
			name:    "missing shipper",
			row:     MappedRow{ShipperName: "", RevenueInCurrency: 100, ProfitabilityRatio: 0.1},
			reasons: []string{ReasonMissingShipper},
		},
		{
			name:    "whitespace shipper counts as missing",
			row:     MappedRow{ShipperName: "   ", RevenueInCurrency: 100, ProfitabilityRatio: 0.1},
			reasons: []string{ReasonMissingShipper},
		},
		{
			name:    "zero revenue",
			row:     MappedRow{ShipperName: "MSC", RevenueInCurrency: 0, ProfitabilityRatio: 0.1},
			reasons: []string{ReasonZeroRevenue},
		},
		{
			name:    "negative profitability",
			row:     MappedRow{ShipperName: "MSC", RevenueInCurrency: 100, ProfitabilityRatio: -0.05},
			reasons: []string{ReasonNegativeProfit},
		},
		{
			name:    "profitability over hundred",
			row:     MappedRow{ShipperName: "MSC", RevenueInCurrency: 100, ProfitabilityRatio: 1.5},
			reasons: []string{ReasonProfitOverHundred},
		},
		{
			name:    "boundary ratio one is valid",
			row:     MappedRow{ShipperName: "MSC", RevenueInCurrency: 100, ProfitabilityRatio: 1},
			reasons: nil,
		},
		{
			name:    "boundary ratio zero is valid",
			row:     MappedRow{ShipperName: "MSC", RevenueInCurrency: 100, ProfitabilityRatio: 0},
			reasons: nil,
		},
		{
			name: "all failures collected in rule order",
			row:  MappedRow{ShipperName: "", RevenueInCurrency: 0, ProfitabilityRatio: -1},
			reasons: []string{
				ReasonMissingShipper,
				ReasonZeroRevenue,
				ReasonNegativeProfit,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateRow(tt.row)

			wantErr := len(tt.reasons) > 0
			if got.HasError != wantErr {
				t.Errorf("HasError = %v, want %v", got.HasError, wantErr)
			}
			if !reflect.DeepEqual(got.Reasons, tt.reasons) {
				t.Errorf("Reasons = %v, want %v", got.Reasons, tt.reasons)
			}
		})
	}
}

func TestValidateRow_Idempotent(t *testing.T) {
	row := MappedRow{ShipperName: "", RevenueInCurrency: 0, ProfitabilityRatio: 2}

	first := ValidateRow(row)
	second := ValidateRow(row)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated validation diverged: %v vs %v", first, second)
	}
}

func TestRevalidate_RefreshesFlags(t *testing.T) {
	row := MappedRow{ShipperName: "MSC", RevenueInCurrency: 100, ProfitabilityRatio: 0.2,
		HasError: true, ErrorReasons: []string{"stale"}}

	got := revalidate(row)

	if got.HasError {
		t.Errorf("HasError = true after revalidating a now-valid row")
	}
	if got.ErrorReasons != nil {
		t.Errorf("ErrorReasons = %v, want nil", got.ErrorReasons)
	}
	// Input untouched.
	if !row.HasError {
		t.Errorf("revalidate mutated its input")
	}
}
