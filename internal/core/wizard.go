package core

// wizard.go is the four-stage import state machine:
//
//	Upload -> Mapping -> Validation -> Importing -> Done
//
// with explicit back-transitions Validation -> Mapping and
// Mapping -> Upload that discard derived state. The wizard is a value
// type: every transition returns a new snapshot and leaves the receiver
// untouched, so session code can hold the previous snapshot until the
// transition is known to have succeeded.

import (
	"github.com/tigerops/salesops/internal/schema"
)

// Stage is the wizard's position in the import flow.
type Stage string

const (
	StageUpload     Stage = "upload"
	StageMapping    Stage = "mapping"
	StageValidation Stage = "validation"
	StageImporting  Stage = "importing"
	StageDone       Stage = "done"
)

// Wizard holds one import session's working state. Zero value is not
// usable; start from NewWizard.
type Wizard struct {
	Stage    Stage
	FileName string
	Headers  []string
	Raw      []RawRow
	Mapping  ColumnMapping
	Rows     []MappedRow
	Report   *ImportReport
	Failure  string // last commit failure, shown until the next attempt
}

// NewWizard returns a wizard in the upload stage.
func NewWizard() Wizard {
	return Wizard{Stage: StageUpload}
}

// LoadTable consumes an extracted table and moves Upload -> Mapping,
// seeding the column mapping from the fuzzy matcher. A table with zero
// data rows is rejected and the wizard stays in Upload.
func (w Wizard) LoadTable(fileName string, table RawTable) (Wizard, error) {
	if w.Stage != StageUpload {
		return w, ErrInvalidTransition
	}
	if len(table.Rows) == 0 {
		return w, ErrNoRows
	}

	next := w
	next.Stage = StageMapping
	next.FileName = fileName
	next.Headers = table.Headers
	next.Raw = table.Rows
	next.Mapping = MatchColumns(table.Headers, schema.Fields)
	return next, nil
}

// Bind overrides one field binding while in the mapping stage.
// An empty header unmaps the field.
func (w Wizard) Bind(fieldKey, header string) (Wizard, error) {
	if w.Stage != StageMapping {
		return w, ErrInvalidTransition
	}
	if _, ok := schema.ByKey(fieldKey); !ok {
		return w, ErrUnknownField
	}

	next := w
	next.Mapping = cloneMapping(w.Mapping)
	if header == "" {
		delete(next.Mapping, fieldKey)
	} else {
		next.Mapping[fieldKey] = header
	}
	return next, nil
}

// ApplyMapping moves Mapping -> Validation. The transition is guarded:
// every required field must be bound or the wizard is returned unchanged
// with a MappingError naming the missing labels. On success every raw row
// becomes a MappedRow, normalized and validated exactly once and tagged
// with its 1-based source position.
func (w Wizard) ApplyMapping() (Wizard, error) {
	if w.Stage != StageMapping {
		return w, ErrInvalidTransition
	}

	var missing []string
	for _, field := range schema.RequiredFields() {
		if w.Mapping[field.Key] == "" {
			missing = append(missing, field.Label)
		}
	}
	if len(missing) > 0 {
		return w, &MappingError{MissingLabels: missing}
	}

	rows := make([]MappedRow, len(w.Raw))
	for i, raw := range w.Raw {
		rows[i] = buildRow(raw, w.Mapping, i+1)
	}

	next := w
	next.Stage = StageValidation
	next.Rows = rows
	next.Failure = ""
	return next, nil
}

// EditCell applies one field edit to the row with the given original row
// number and re-validates that row only. Revenue and profitability values
// are re-derived through the normalizer; other fields take the raw text.
func (w Wizard) EditCell(rowNumber int, fieldKey string, value Cell) (Wizard, error) {
	if w.Stage != StageValidation {
		return w, ErrInvalidTransition
	}

	idx := -1
	for i, row := range w.Rows {
		if row.RowNumber == rowNumber {
			idx = i
			break
		}
	}
	if idx < 0 {
		return w, ErrRowNotFound
	}

	edited, err := ApplyEdit(w.Rows[idx], fieldKey, value)
	if err != nil {
		return w, err
	}

	next := w
	next.Rows = cloneRows(w.Rows)
	next.Rows[idx] = revalidate(edited)
	return next, nil
}

// RemoveRow drops a row from the working set. Remaining rows keep their
// original row numbers.
func (w Wizard) RemoveRow(rowNumber int) (Wizard, error) {
	if w.Stage != StageValidation {
		return w, ErrInvalidTransition
	}

	rows := make([]MappedRow, 0, len(w.Rows))
	found := false
	for _, row := range w.Rows {
		if row.RowNumber == rowNumber {
			found = true
			continue
		}
		rows = append(rows, row)
	}
	if !found {
		return w, ErrRowNotFound
	}

	next := w
	next.Rows = rows
	return next, nil
}

// ValidCount returns the number of rows currently passing validation.
func (w Wizard) ValidCount() int {
	n := 0
	for _, row := range w.Rows {
		if !row.HasError {
			n++
		}
	}
	return n
}

// InvalidCount returns the number of rows currently failing validation.
func (w Wizard) InvalidCount() int {
	return len(w.Rows) - w.ValidCount()
}

// BeginCommit moves Validation -> Importing. At least one row must be
// valid; commit from any other stage is rejected.
func (w Wizard) BeginCommit() (Wizard, error) {
	if w.Stage != StageValidation {
		return w, ErrInvalidTransition
	}
	if w.ValidCount() == 0 {
		return w, ErrNoValidRows
	}

	next := w
	next.Stage = StageImporting
	next.Failure = ""
	return next, nil
}

// CompleteCommit moves Importing -> Done holding the import report.
func (w Wizard) CompleteCommit(report ImportReport) (Wizard, error) {
	if w.Stage != StageImporting {
		return w, ErrInvalidTransition
	}

	next := w
	next.Stage = StageDone
	next.Report = &report
	return next, nil
}

// FailCommit returns the wizard to Validation with the working set intact
// so the user can retry the commit unchanged. The failure reason is kept
// on the snapshot for display.
func (w Wizard) FailCommit(reason string) (Wizard, error) {
	if w.Stage != StageImporting {
		return w, ErrInvalidTransition
	}

	next := w
	next.Stage = StageValidation
	next.Failure = reason
	return next, nil
}

// Back steps the wizard one stage backward, discarding state derived in
// the stage being left: Validation -> Mapping drops the working set,
// Mapping -> Upload drops everything from the file.
func (w Wizard) Back() (Wizard, error) {
	switch w.Stage {
	case StageValidation:
		next := w
		next.Stage = StageMapping
		next.Rows = nil
		next.Failure = ""
		return next, nil
	case StageMapping:
		return NewWizard(), nil
	default:
		return w, ErrInvalidTransition
	}
}

// Reset starts a fresh session from any stage.
func (w Wizard) Reset() Wizard {
	return NewWizard()
}

// ApplyEdit is the pure reducer behind interactive cell edits. It returns
// a copy of row with a single field changed; the caller re-validates.
func ApplyEdit(row MappedRow, fieldKey string, value Cell) (MappedRow, error) {
	switch fieldKey {
	case schema.KeyShipperName:
		row.ShipperName = CleanCell(value.String())
	case schema.KeyTeuQty:
		row.TeuQty = CleanCell(value.String())
	case schema.KeyRevenueInCurrency:
		row.RevenueInCurrency = ParseCurrency(value)
	case schema.KeyProfitabilityRatio:
		row.ProfitabilityRatio = ParseRatio(value)
	case schema.KeyNotes:
		row.Notes = CleanCell(value.String())
	default:
		return row, ErrUnknownField
	}
	return row, nil
}

// buildRow resolves one raw row against the mapping, normalizing each
// value exactly once, then validates the result.
func buildRow(raw RawRow, mapping ColumnMapping, rowNumber int) MappedRow {
	row := MappedRow{RowNumber: rowNumber}

	row.ShipperName = CleanCell(raw[mapping[schema.KeyShipperName]].String())
	row.TeuQty = CleanCell(raw[mapping[schema.KeyTeuQty]].String())
	row.RevenueInCurrency = ParseCurrency(raw[mapping[schema.KeyRevenueInCurrency]])
	row.ProfitabilityRatio = ParseRatio(raw[mapping[schema.KeyProfitabilityRatio]])
	if header, ok := mapping[schema.KeyNotes]; ok {
		row.Notes = CleanCell(raw[header].String())
	}

	return revalidate(row)
}

func cloneMapping(m ColumnMapping) ColumnMapping {
	out := make(ColumnMapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneRows(rows []MappedRow) []MappedRow {
	out := make([]MappedRow, len(rows))
	copy(out, rows)
	return out
}
