// Package schema defines the semantic fields an import target expects,
// independent of how the source spreadsheet labels its columns.
//
// Each Field carries an ordered alias list used for fuzzy column matching:
// an exact lowercase match is tried first, then substring containment in
// either direction. The field set is fixed at process start and is a stable
// public contract for any mapping UI.
package schema

// Well-known field keys.
const (
	KeyShipperName        = "shipperName"
	KeyTeuQty             = "teuQty"
	KeyRevenueInCurrency  = "revenueInCurrency"
	KeyProfitabilityRatio = "profitabilityRatio"
	KeyNotes              = "notes"
)

// Field is one semantic slot the import pipeline fills.
type Field struct {
	Key      string   // Stable identifier used in mappings and JSON payloads
	Label    string   // Display name shown when a required column is missing
	Required bool     // Mapping cannot be applied until a header is bound
	Aliases  []string // Lowercase match candidates, in priority order
}

// Fields is the fixed semantic schema for shipment line imports.
// Order matters: the mapping UI and the matcher both walk it front to back.
var Fields = []Field{
	{
		Key:      KeyShipperName,
		Label:    "Shipper / Client Name",
		Required: true,
		Aliases: []string{
			"shipper", "shipper name", "client", "client name", "customer",
			"party", "party name", "consignee", "name",
		},
	},
	{
		Key:      KeyTeuQty,
		Label:    "TEU / Quantity",
		Required: false,
		Aliases: []string{
			"teu", "teus", "total teu", "total teus", "qty", "quantity",
			"containers", "cntr", "no of teus", "no. of teus",
		},
	},
	{
		Key:      KeyRevenueInCurrency,
		Label:    "Revenue (INR)",
		Required: true,
		Aliases: []string{
			"revenue", "total revenue", "revenue inr", "revenue (inr)", "rev",
			"amount", "total amount", "turnover", "sales", "billing", "value",
		},
	},
	{
		Key:      KeyProfitabilityRatio,
		Label:    "Profitability %",
		Required: true,
		Aliases: []string{
			"profitability", "profitability %", "profitability%", "profit %",
			"profit%", "margin", "margin %", "margin%", "gp%", "gp %",
			"gross profit", "profit pct",
		},
	},
	{
		Key:      KeyNotes,
		Label:    "Notes / Remarks",
		Required: false,
		Aliases: []string{
			"notes", "remarks", "comment", "comments", "observation", "remark",
		},
	},
}

// ByKey returns the field with the given key.
// Returns false if the key is not part of the schema.
func ByKey(key string) (Field, bool) {
	for _, f := range Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// RequiredFields returns the subset of Fields that must be mapped
// before validation can begin.
func RequiredFields() []Field {
	var req []Field
	for _, f := range Fields {
		if f.Required {
			req = append(req, f)
		}
	}
	return req
}
