package core

import "testing"

func TestParseCurrency(t *testing.T) {
	tests := []struct {
		name string
		cell Cell
		want float64
	}{
		{"plain number", StringCell("213000"), 213000},
		{"indian grouping", StringCell("2,13,000"), 213000},
		{"rupee symbol", StringCell("₹ 2,13,000"), 213000},
		{"rupee symbol no space", StringCell("₹213000.50"), 213000.50},
		{"dollar symbol", StringCell("$1,500"), 1500},
		{"excel formula artifact", StringCell(`="45000"`), 45000},
		{"quoted", StringCell(`"45000"`), 45000},
		{"no-break space", StringCell("₹ 1,200"), 1200},
		{"empty string", StringCell(""), 0},
		{"whitespace only", StringCell("   "), 0},
		{"garbage", StringCell("n/a"), 0},
		{"negative", StringCell("-500"), -500},
		{"numeric cell passthrough", NumberCell(98765.5), 98765.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseCurrency(tt.cell); got != tt.want {
				t.Errorf("ParseCurrency(%v) = %v, want %v", tt.cell, got, tt.want)
			}
		})
	}
}

func TestParseRatio(t *testing.T) {
	tests := []struct {
		name string
		cell Cell
		want float64
	}{
		{"ratio passthrough", StringCell("0.16"), 0.16},
		{"whole number percent", StringCell("16"), 0.16},
		{"percent sign", StringCell("16%"), 0.16},
		{"percent with space", StringCell("16 %"), 0.16},
		{"boundary one stays", StringCell("1"), 1},
		{"just above one rescales", StringCell("1.5"), 0.015},
		{"hundred percent", StringCell("100"), 1},
		{"over hundred", StringCell("150"), 1.5},
		{"negative stays", StringCell("-0.05"), -0.05},
		{"empty string", StringCell(""), 0},
		{"garbage", StringCell("abc"), 0},
		{"numeric cell rescaled", NumberCell(16), 0.16},
		{"numeric cell ratio", NumberCell(0.42), 0.42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseRatio(tt.cell); got != tt.want {
				t.Errorf("ParseRatio(%v) = %v, want %v", tt.cell, got, tt.want)
			}
		})
	}
}

func TestCleanCell(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trims whitespace", "  Maersk  ", "Maersk"},
		{"excel formula wrapper", `="MSC India"`, "MSC India"},
		{"bare equals prefix", "=SUM(A1)", "SUM(A1)"},
		{"double quotes", `"Hapag"`, "Hapag"},
		{"single quotes", "'CMA CGM'", "CMA CGM"},
		{"empty", "", ""},
		{"already clean", "ONE Line", "ONE Line"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanCell(tt.in); got != tt.want {
				t.Errorf("CleanCell(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCellString_NumberFormatting(t *testing.T) {
	// Numbers render without trailing zeros, the way sheets display them.
	tests := []struct {
		cell Cell
		want string
	}{
		{NumberCell(42), "42"},
		{NumberCell(42.5), "42.5"},
		{NumberCell(0.16), "0.16"},
		{StringCell("hello"), "hello"},
	}

	for _, tt := range tests {
		if got := tt.cell.String(); got != tt.want {
			t.Errorf("Cell.String() = %q, want %q", got, tt.want)
		}
	}
}
