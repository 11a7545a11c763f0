package core_test

// Importer tests run against the in-memory store so sequence semantics
// are exercised end to end without a database.

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/tigerops/salesops/internal/core"
	"github.com/tigerops/salesops/internal/store"
)

func testKey() core.GroupKey {
	return core.GroupKey{
		OwnerID:   uuid.New(),
		PeriodKey: "2026-04",
		RowType:   core.RowTypeActual,
	}
}

func validRow(name string, revenue, ratio float64) core.MappedRow {
	return core.MappedRow{
		ShipperName:        name,
		RevenueInCurrency:  revenue,
		ProfitabilityRatio: ratio,
	}
}

func TestImport_MixedBatch(t *testing.T) {
	mem := store.NewMemory()
	importer := core.NewImporter(mem)
	ctx := context.Background()
	key := testKey()

	rows := []core.MappedRow{
		validRow("Maersk", 213000, 0.16),
		{ShipperName: "", RevenueInCurrency: 50000, ProfitabilityRatio: 0.2,
			HasError: true, ErrorReasons: []string{core.ReasonMissingShipper}},
		validRow("MSC", 87000, 0.12),
	}

	report, err := importer.Import(ctx, key, rows)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	if report.Imported != 2 || report.Skipped != 1 || report.Total != 3 {
		t.Errorf("report = %d imported / %d skipped / %d total, want 2/1/3",
			report.Imported, report.Skipped, report.Total)
	}
	if report.Imported+report.Skipped != report.Total {
		t.Errorf("imported + skipped != total: %+v", report)
	}
	if len(report.SkippedDetails) != 1 {
		t.Fatalf("skipped details = %v", report.SkippedDetails)
	}
	if report.SkippedDetails[0].Row != 2 {
		t.Errorf("skip row = %d, want 1-based request position 2", report.SkippedDetails[0].Row)
	}
	if report.SkippedDetails[0].Reason != core.ReasonMissingShipper {
		t.Errorf("skip reason = %q", report.SkippedDetails[0].Reason)
	}

	group, found, err := mem.FindGroup(ctx, key)
	if err != nil || !found {
		t.Fatalf("FindGroup() = %v, %v", found, err)
	}
	items, err := mem.ListLineItems(ctx, group.ID)
	if err != nil {
		t.Fatalf("ListLineItems() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	if items[0].SequenceNumber != 1 || items[1].SequenceNumber != 2 {
		t.Errorf("sequences = %d, %d; want 1, 2", items[0].SequenceNumber, items[1].SequenceNumber)
	}
	if items[0].RevenuePaise != 21300000 {
		t.Errorf("revenue paise = %d, want 21300000", items[0].RevenuePaise)
	}
	// profit = round(21300000 * 0.16)
	if items[0].ProfitPaise != 3408000 {
		t.Errorf("profit paise = %d, want 3408000", items[0].ProfitPaise)
	}
}

func TestImport_ServerSideRevalidation(t *testing.T) {
	// A row the client marked valid but which fails the server rules is
	// skipped, with all its reasons joined.
	mem := store.NewMemory()
	importer := core.NewImporter(mem)
	key := testKey()

	rows := []core.MappedRow{
		{ShipperName: "", RevenueInCurrency: 0, ProfitabilityRatio: 0.1, HasError: false},
	}

	report, err := importer.Import(context.Background(), key, rows)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if report.Imported != 0 || report.Skipped != 1 {
		t.Fatalf("report = %+v", report)
	}
	reason := report.SkippedDetails[0].Reason
	if !strings.Contains(reason, core.ReasonMissingShipper) || !strings.Contains(reason, core.ReasonZeroRevenue) {
		t.Errorf("reason = %q, want both server-side failures", reason)
	}
}

func TestImport_FlaggedRowWithoutReasons(t *testing.T) {
	mem := store.NewMemory()
	importer := core.NewImporter(mem)

	rows := []core.MappedRow{
		{ShipperName: "Maersk", RevenueInCurrency: 100, ProfitabilityRatio: 0.1, HasError: true},
	}

	report, err := importer.Import(context.Background(), testKey(), rows)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if report.SkippedDetails[0].Reason != "Flagged error" {
		t.Errorf("reason = %q, want fallback %q", report.SkippedDetails[0].Reason, "Flagged error")
	}
}

func TestImport_SequencesContinueAcrossCommits(t *testing.T) {
	mem := store.NewMemory()
	importer := core.NewImporter(mem)
	ctx := context.Background()
	key := testKey()

	if _, err := importer.Import(ctx, key, []core.MappedRow{
		validRow("A", 100, 0.1),
		validRow("B", 200, 0.1),
	}); err != nil {
		t.Fatalf("first Import() error = %v", err)
	}

	report, err := importer.Import(ctx, key, []core.MappedRow{validRow("C", 300, 0.1)})
	if err != nil {
		t.Fatalf("second Import() error = %v", err)
	}
	if report.Imported != 1 {
		t.Fatalf("report = %+v", report)
	}

	group, _, _ := mem.FindGroup(ctx, key)
	items, _ := mem.ListLineItems(ctx, group.ID)
	if len(items) != 3 {
		t.Fatalf("items = %d, want 3", len(items))
	}
	for i, item := range items {
		if item.SequenceNumber != i+1 {
			t.Errorf("sequence[%d] = %d, want strictly increasing from 1", i, item.SequenceNumber)
		}
	}
}

func TestImport_SeparateGroupsSequenceIndependently(t *testing.T) {
	mem := store.NewMemory()
	importer := core.NewImporter(mem)
	ctx := context.Background()
	owner := uuid.New()

	actual := core.GroupKey{OwnerID: owner, PeriodKey: "2026-04", RowType: core.RowTypeActual}
	projection := core.GroupKey{OwnerID: owner, PeriodKey: "2026-04", RowType: core.RowTypeProjection}

	importer.Import(ctx, actual, []core.MappedRow{validRow("A", 100, 0.1), validRow("B", 200, 0.1)})
	importer.Import(ctx, projection, []core.MappedRow{validRow("C", 300, 0.1)})

	pg, _, _ := mem.FindGroup(ctx, projection)
	items, _ := mem.ListLineItems(ctx, pg.ID)
	if len(items) != 1 || items[0].SequenceNumber != 1 {
		t.Errorf("projection sequence = %+v, want its own counter starting at 1", items)
	}
}

func TestImport_MidBatchFailure(t *testing.T) {
	mem := store.NewMemory()
	mem.FailInsertAfter = 1
	importer := core.NewImporter(mem)
	ctx := context.Background()
	key := testKey()

	report, err := importer.Import(ctx, key, []core.MappedRow{
		validRow("A", 100, 0.1),
		validRow("B", 200, 0.1),
		validRow("C", 300, 0.1),
	})

	var commitErr *core.CommitError
	if !errors.As(err, &commitErr) {
		t.Fatalf("error = %v, want CommitError", err)
	}
	// The row committed before the failure stays committed.
	if report.Imported != 1 {
		t.Errorf("report.Imported = %d, want partial progress reported", report.Imported)
	}
	group, _, _ := mem.FindGroup(ctx, key)
	items, _ := mem.ListLineItems(ctx, group.ID)
	if len(items) != 1 {
		t.Errorf("items = %d, want committed rows left in place", len(items))
	}

	// A retry appends with fresh sequence numbers past the reserved block.
	mem.FailInsertAfter = -1
	if _, err := importer.Import(ctx, key, []core.MappedRow{validRow("B", 200, 0.1)}); err != nil {
		t.Fatalf("retry Import() error = %v", err)
	}
	items, _ = mem.ListLineItems(ctx, group.ID)
	if len(items) != 2 {
		t.Fatalf("items = %d after retry, want 2", len(items))
	}
	if items[1].SequenceNumber <= items[0].SequenceNumber {
		t.Errorf("retry sequence %d not after %d", items[1].SequenceNumber, items[0].SequenceNumber)
	}
	if items[1].SequenceNumber != 4 {
		t.Errorf("retry sequence = %d, want 4 (block of 3 reserved before the failure)", items[1].SequenceNumber)
	}
}

func TestImport_EmptyAndAllSkipped(t *testing.T) {
	mem := store.NewMemory()
	importer := core.NewImporter(mem)
	ctx := context.Background()
	key := testKey()

	report, err := importer.Import(ctx, key, nil)
	if err != nil {
		t.Fatalf("Import(nil) error = %v", err)
	}
	if report.Total != 0 || report.Imported != 0 {
		t.Errorf("report = %+v, want empty", report)
	}

	report, err = importer.Import(ctx, key, []core.MappedRow{
		{HasError: true, ErrorReasons: []string{core.ReasonZeroRevenue}},
	})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if report.Skipped != 1 || report.Imported != 0 {
		t.Errorf("report = %+v, want everything skipped, nothing stored", report)
	}

	// No sequence numbers were burned for all-skipped batches.
	group, _, _ := mem.FindGroup(ctx, key)
	max, _ := mem.MaxSequence(ctx, group.ID)
	if max != 0 {
		t.Errorf("MaxSequence = %d, want 0", max)
	}
}

func TestAddEntry(t *testing.T) {
	mem := store.NewMemory()
	importer := core.NewImporter(mem)
	ctx := context.Background()
	key := testKey()

	item, err := importer.AddEntry(ctx, key, validRow("Maersk", 1000, 0.25))
	if err != nil {
		t.Fatalf("AddEntry() error = %v", err)
	}
	if item.SequenceNumber != 1 {
		t.Errorf("sequence = %d, want 1", item.SequenceNumber)
	}
	if item.RevenuePaise != 100000 {
		t.Errorf("revenue paise = %d, want 100000", item.RevenuePaise)
	}
	if item.ProfitPaise != 25000 {
		t.Errorf("profit paise = %d, want 25000", item.ProfitPaise)
	}

	// Manual entries and batch imports share the group's counter.
	if _, err := importer.Import(ctx, key, []core.MappedRow{validRow("MSC", 500, 0.1)}); err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	group, _, _ := mem.FindGroup(ctx, key)
	items, _ := mem.ListLineItems(ctx, group.ID)
	if len(items) != 2 || items[1].SequenceNumber != 2 {
		t.Errorf("items = %+v, want batch row at sequence 2", items)
	}
}

func TestAddEntry_RejectsInvalid(t *testing.T) {
	mem := store.NewMemory()
	importer := core.NewImporter(mem)

	_, err := importer.AddEntry(context.Background(), testKey(), core.MappedRow{
		ShipperName:        "",
		RevenueInCurrency:  0,
		ProfitabilityRatio: 0.1,
	})

	var failure *core.ValidationFailure
	if !errors.As(err, &failure) {
		t.Fatalf("error = %v, want ValidationFailure", err)
	}
	if len(failure.Reasons) != 2 {
		t.Errorf("reasons = %v, want both rule failures", failure.Reasons)
	}
}
