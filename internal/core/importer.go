package core

// importer.go commits a working set of rows against an import group.
//
// The batch has partial-failure semantics: rows that fail validation are
// skipped with a reason and the rest proceed. There is no compensating
// rollback. A storage failure partway through leaves the already
// committed rows in place and surfaces a CommitError, and a retried
// commit appends new line items with fresh sequence numbers. Commit is
// at-least-once, not idempotent.
//
// Sequence numbers are reserved as one atomic block on the group before
// any row is written, so concurrent commits into the same group receive
// disjoint, strictly increasing ranges.

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/tigerops/salesops/internal/money"
)

// Importer persists validated rows as line items.
type Importer struct {
	store Store
}

// NewImporter creates an Importer backed by the given store.
func NewImporter(store Store) *Importer {
	return &Importer{store: store}
}

// Import upserts the group for key, re-validates every row server-side,
// and persists the valid ones with contiguous sequence numbers starting
// at the group's previous maximum plus one. Rows the client flagged as
// invalid are skipped with the client's reason without re-checking.
func (im *Importer) Import(ctx context.Context, key GroupKey, rows []MappedRow) (ImportReport, error) {
	report := ImportReport{
		Total:          len(rows),
		SkippedDetails: []SkippedRow{},
	}

	group, err := im.store.UpsertGroup(ctx, key)
	if err != nil {
		return report, &CommitError{Err: err}
	}

	// Partition in input order before touching storage, so the size of
	// the sequence block is known up front.
	type pendingRow struct {
		row MappedRow
		pos int // 1-based position in the request
	}
	var pending []pendingRow

	for i, row := range rows {
		pos := i + 1

		if row.HasError {
			report.SkippedDetails = append(report.SkippedDetails, SkippedRow{
				Row:    pos,
				Reason: skipReason(row.ErrorReasons),
			})
			continue
		}

		// Never trust client-side validation alone.
		if verdict := ValidateRow(row); verdict.HasError {
			report.SkippedDetails = append(report.SkippedDetails, SkippedRow{
				Row:    pos,
				Reason: strings.Join(verdict.Reasons, "; "),
			})
			continue
		}

		pending = append(pending, pendingRow{row: row, pos: pos})
	}
	report.Skipped = len(report.SkippedDetails)

	if len(pending) == 0 {
		return report, nil
	}

	firstSeq, err := im.store.ReserveSequence(ctx, group.ID, len(pending))
	if err != nil {
		return report, &CommitError{Err: err}
	}

	for i, p := range pending {
		item := LineItem{
			ID:                 uuid.New(),
			GroupID:            group.ID,
			SequenceNumber:     firstSeq + i,
			ShipperName:        strings.TrimSpace(p.row.ShipperName),
			TeuQty:             strings.TrimSpace(p.row.TeuQty),
			RevenuePaise:       money.RupeesToPaise(p.row.RevenueInCurrency),
			ProfitabilityRatio: p.row.ProfitabilityRatio,
			RowType:            key.RowType,
			Notes:              strings.TrimSpace(p.row.Notes),
		}
		item.ProfitPaise = money.ProfitPaise(item.RevenuePaise, item.ProfitabilityRatio)

		if err := im.store.InsertLineItem(ctx, item); err != nil {
			slog.Error("line item insert failed",
				"group_id", group.ID,
				"sequence", item.SequenceNumber,
				"row", p.pos,
				"error", err,
			)
			return report, &CommitError{Err: err}
		}

		report.Imported++
		report.ImportedNames = append(report.ImportedNames, item.ShipperName)
	}

	slog.Info("batch import committed",
		"group_id", group.ID,
		"period", key.PeriodKey,
		"row_type", key.RowType,
		"imported", report.Imported,
		"skipped", report.Skipped,
		"first_sequence", firstSeq,
	)

	return report, nil
}

// ValidationFailure carries the reasons a manual entry was rejected.
type ValidationFailure struct {
	Reasons []string
}

func (e *ValidationFailure) Error() string {
	return strings.Join(e.Reasons, "; ")
}

// AddEntry persists one manually entered row. Unlike batch import, an
// invalid entry is rejected outright rather than skipped. The entry takes
// the group's next sequence number through the same atomic reservation as
// batch commits, so manual entries and imports never collide.
func (im *Importer) AddEntry(ctx context.Context, key GroupKey, row MappedRow) (LineItem, error) {
	if verdict := ValidateRow(row); verdict.HasError {
		return LineItem{}, &ValidationFailure{Reasons: verdict.Reasons}
	}

	group, err := im.store.UpsertGroup(ctx, key)
	if err != nil {
		return LineItem{}, &CommitError{Err: err}
	}

	seq, err := im.store.ReserveSequence(ctx, group.ID, 1)
	if err != nil {
		return LineItem{}, &CommitError{Err: err}
	}

	item := LineItem{
		ID:                 uuid.New(),
		GroupID:            group.ID,
		SequenceNumber:     seq,
		ShipperName:        strings.TrimSpace(row.ShipperName),
		TeuQty:             strings.TrimSpace(row.TeuQty),
		RevenuePaise:       money.RupeesToPaise(row.RevenueInCurrency),
		ProfitabilityRatio: row.ProfitabilityRatio,
		RowType:            key.RowType,
		Notes:              strings.TrimSpace(row.Notes),
	}
	item.ProfitPaise = money.ProfitPaise(item.RevenuePaise, item.ProfitabilityRatio)

	if err := im.store.InsertLineItem(ctx, item); err != nil {
		return LineItem{}, &CommitError{Err: err}
	}

	slog.Info("manual entry added",
		"group_id", group.ID,
		"sequence", item.SequenceNumber,
		"shipper", item.ShipperName,
	)
	return item, nil
}

// skipReason renders a client-flagged row's reasons for the skip ledger.
func skipReason(reasons []string) string {
	if len(reasons) == 0 {
		return "Flagged error"
	}
	return strings.Join(reasons, "; ")
}
