// Package core provides the business logic for the spreadsheet import
// pipeline. This package has no HTTP dependencies and can be driven by any
// frontend.
package core

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// CellKind tags the variant of a spreadsheet cell value.
type CellKind int

const (
	CellString CellKind = iota
	CellNumber
)

// Cell is an untyped spreadsheet cell as produced at the extraction
// boundary. Cells are resolved into canonical numeric types only through
// the normalizer functions, never branched on ad hoc elsewhere.
type Cell struct {
	Kind CellKind
	Str  string
	Num  float64
}

// StringCell wraps a raw string value.
func StringCell(s string) Cell { return Cell{Kind: CellString, Str: s} }

// NumberCell wraps a native numeric value.
func NumberCell(n float64) Cell { return Cell{Kind: CellNumber, Num: n} }

// String returns the cell's text content. Numeric cells render with
// minimal notation, matching how spreadsheet tools display them.
func (c Cell) String() string {
	if c.Kind == CellNumber {
		return formatNumber(c.Num)
	}
	return c.Str
}

// CellFromAny converts a decoded JSON value into a Cell. Numbers arrive
// as float64, everything else is carried as text.
func CellFromAny(v any) Cell {
	switch t := v.(type) {
	case float64:
		return NumberCell(t)
	case int:
		return NumberCell(float64(t))
	case string:
		return StringCell(t)
	case nil:
		return StringCell("")
	default:
		return StringCell(fmt.Sprint(t))
	}
}

// RawRow maps a source header to the cell extracted under it.
type RawRow map[string]Cell

// RawTable is the output of tabular extraction: an ordered header row and
// the data rows keyed by those headers.
type RawTable struct {
	Headers []string
	Rows    []RawRow
}

// ColumnMapping binds semantic field keys to source headers. A field key
// absent from the map is unmapped.
type ColumnMapping map[string]string

// RowType buckets line items within a reporting period.
type RowType string

const (
	RowTypeActual     RowType = "actual"
	RowTypeProjection RowType = "projection"
	RowTypePipeline   RowType = "pipeline"
)

// ValidRowType reports whether s names a known row type.
func ValidRowType(s string) bool {
	switch RowType(s) {
	case RowTypeActual, RowTypeProjection, RowTypePipeline:
		return true
	}
	return false
}

// MappedRow is the working entity of an import session: one raw row
// resolved against the column mapping, normalized and validated.
// RowNumber is 1-based and stable across edits and removals.
type MappedRow struct {
	ShipperName        string   `json:"shipperName"`
	TeuQty             string   `json:"teuQty"`
	RevenueInCurrency  float64  `json:"revenueInCurrency"`
	ProfitabilityRatio float64  `json:"profitabilityRatio"`
	Notes              string   `json:"notes"`
	HasError           bool     `json:"hasError"`
	ErrorReasons       []string `json:"errorReasons,omitempty"`
	RowNumber          int      `json:"rowNumber"`
}

// GroupKey identifies an import group: one reporting period and data-type
// bucket owned by one user. Exactly one group exists per distinct key.
type GroupKey struct {
	OwnerID   uuid.UUID
	PeriodKey string
	RowType   RowType
}

// ImportGroup is the aggregate that owns imported line items and enforces
// sequence-number uniqueness.
type ImportGroup struct {
	ID      uuid.UUID
	Key     GroupKey
	LastSeq int
}

// LineItem is one committed row. Revenue and profit are stored in paise
// (integer minor units); ProfitPaise is derived at commit time as
// round(RevenuePaise * ProfitabilityRatio).
type LineItem struct {
	ID                 uuid.UUID
	GroupID            uuid.UUID
	SequenceNumber     int
	ShipperName        string
	TeuQty             string
	RevenuePaise       int64
	ProfitabilityRatio float64
	ProfitPaise        int64
	RowType            RowType
	Notes              string
}

// SkippedRow records one row excluded from a commit and why.
type SkippedRow struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ImportReport is the outcome of one commit call.
// Imported + Skipped always equals Total.
type ImportReport struct {
	Imported       int          `json:"imported"`
	Skipped        int          `json:"skipped"`
	SkippedDetails []SkippedRow `json:"skippedDetails"`
	Total          int          `json:"total"`
	ImportedNames  []string     `json:"importedNames,omitempty"`
}

// Store is the persistence surface the importer and query handlers consume.
// Implementations live in internal/store.
type Store interface {
	// UpsertGroup resolves or creates the group for key. Creating is
	// idempotent: a second call with the same key returns the same group.
	UpsertGroup(ctx context.Context, key GroupKey) (ImportGroup, error)

	// ReserveSequence atomically reserves n sequence numbers on the group
	// and returns the first of the block. Reserved numbers are never
	// reused, even if the caller fails before persisting every row.
	ReserveSequence(ctx context.Context, groupID uuid.UUID, n int) (int, error)

	// InsertLineItem persists one committed row.
	InsertLineItem(ctx context.Context, item LineItem) error

	// FindGroup looks up a group by key without creating it.
	FindGroup(ctx context.Context, key GroupKey) (ImportGroup, bool, error)

	// ListLineItems returns a group's rows ordered by sequence number.
	ListLineItems(ctx context.Context, groupID uuid.UUID) ([]LineItem, error)

	// MaxSequence returns the highest sequence number committed under the
	// group, or 0 if none exist.
	MaxSequence(ctx context.Context, groupID uuid.UUID) (int, error)
}
