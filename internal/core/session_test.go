package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tigerops/salesops/internal/schema"
)

// fakeStore is a minimal Store for session tests. The full-fidelity
// in-memory store lives in internal/store and is covered there.
type fakeStore struct {
	groups     map[GroupKey]*ImportGroup
	items      map[uuid.UUID][]LineItem
	failInsert bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		groups: make(map[GroupKey]*ImportGroup),
		items:  make(map[uuid.UUID][]LineItem),
	}
}

func (s *fakeStore) UpsertGroup(_ context.Context, key GroupKey) (ImportGroup, error) {
	if g, ok := s.groups[key]; ok {
		return *g, nil
	}
	g := &ImportGroup{ID: uuid.New(), Key: key}
	s.groups[key] = g
	return *g, nil
}

func (s *fakeStore) ReserveSequence(_ context.Context, groupID uuid.UUID, n int) (int, error) {
	for _, g := range s.groups {
		if g.ID == groupID {
			g.LastSeq += n
			return g.LastSeq - n + 1, nil
		}
	}
	return 0, fmt.Errorf("group %s not found", groupID)
}

func (s *fakeStore) InsertLineItem(_ context.Context, item LineItem) error {
	if s.failInsert {
		return errors.New("connection refused")
	}
	s.items[item.GroupID] = append(s.items[item.GroupID], item)
	return nil
}

func (s *fakeStore) FindGroup(_ context.Context, key GroupKey) (ImportGroup, bool, error) {
	if g, ok := s.groups[key]; ok {
		return *g, true, nil
	}
	return ImportGroup{}, false, nil
}

func (s *fakeStore) ListLineItems(_ context.Context, groupID uuid.UUID) ([]LineItem, error) {
	return s.items[groupID], nil
}

func (s *fakeStore) MaxSequence(_ context.Context, groupID uuid.UUID) (int, error) {
	max := 0
	for _, item := range s.items[groupID] {
		if item.SequenceNumber > max {
			max = item.SequenceNumber
		}
	}
	return max, nil
}

const sessionCSV = "Shipper Name,Revenue,Profitability %\nMaersk,213000,16\n,0,5\n"

func newTestService() (*Service, *fakeStore) {
	st := newFakeStore()
	return NewService(st, 2, time.Minute), st
}

func TestService_SessionLifecycle(t *testing.T) {
	svc, _ := newTestService()
	owner := uuid.New()

	id, err := svc.CreateSession(owner)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if svc.OpenSessions() != 1 {
		t.Errorf("OpenSessions() = %d, want 1", svc.OpenSessions())
	}

	w, err := svc.Snapshot(id, owner)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if w.Stage != StageUpload {
		t.Errorf("Stage = %q, want %q", w.Stage, StageUpload)
	}

	if err := svc.CloseSession(id, owner); err != nil {
		t.Fatalf("CloseSession() error = %v", err)
	}
	if svc.OpenSessions() != 0 {
		t.Errorf("OpenSessions() = %d after close, want 0", svc.OpenSessions())
	}
	if _, err := svc.Snapshot(id, owner); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Snapshot after close error = %v, want ErrSessionNotFound", err)
	}
}

func TestService_SessionLimit(t *testing.T) {
	svc, _ := newTestService() // limit 2
	owner := uuid.New()

	first, _ := svc.CreateSession(owner)
	svc.CreateSession(owner)

	if _, err := svc.CreateSession(owner); !errors.Is(err, ErrTooManySessions) {
		t.Fatalf("third CreateSession() error = %v, want ErrTooManySessions", err)
	}

	// Closing one frees a slot.
	if err := svc.CloseSession(first, owner); err != nil {
		t.Fatalf("CloseSession() error = %v", err)
	}
	if _, err := svc.CreateSession(owner); err != nil {
		t.Errorf("CreateSession() after free error = %v", err)
	}
}

func TestService_OwnerScoping(t *testing.T) {
	svc, _ := newTestService()
	owner := uuid.New()
	stranger := uuid.New()

	id, _ := svc.CreateSession(owner)

	if _, err := svc.Snapshot(id, stranger); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("foreign Snapshot error = %v, want indistinguishable from missing", err)
	}
	if err := svc.CloseSession(id, stranger); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("foreign CloseSession error = %v, want ErrSessionNotFound", err)
	}
	// The rightful owner is unaffected.
	if _, err := svc.Snapshot(id, owner); err != nil {
		t.Errorf("owner Snapshot error = %v", err)
	}
}

func TestService_UploadThroughCommit(t *testing.T) {
	svc, st := newTestService()
	owner := uuid.New()
	id, _ := svc.CreateSession(owner)

	w, err := svc.UploadFile(id, owner, "sales.csv", []byte(sessionCSV))
	if err != nil {
		t.Fatalf("UploadFile() error = %v", err)
	}
	if w.Stage != StageMapping {
		t.Fatalf("Stage = %q after upload, want %q", w.Stage, StageMapping)
	}

	w, err = svc.ApplyMapping(id, owner)
	if err != nil {
		t.Fatalf("ApplyMapping() error = %v", err)
	}
	if w.ValidCount() != 1 || w.InvalidCount() != 1 {
		t.Fatalf("counts = %d/%d, want 1 valid and 1 invalid", w.ValidCount(), w.InvalidCount())
	}

	w, err = svc.Commit(context.Background(), id, owner, "2026-04", RowTypeActual)
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if w.Stage != StageDone {
		t.Errorf("Stage = %q, want %q", w.Stage, StageDone)
	}
	if w.Report == nil || w.Report.Imported != 1 || w.Report.Skipped != 1 {
		t.Errorf("Report = %+v, want 1 imported and 1 skipped", w.Report)
	}

	key := GroupKey{OwnerID: owner, PeriodKey: "2026-04", RowType: RowTypeActual}
	group, found, _ := st.FindGroup(context.Background(), key)
	if !found {
		t.Fatalf("group not created")
	}
	items, _ := st.ListLineItems(context.Background(), group.ID)
	if len(items) != 1 || items[0].ShipperName != "Maersk" {
		t.Errorf("items = %+v", items)
	}
}

func TestService_CommitFailureKeepsWorkingSet(t *testing.T) {
	svc, st := newTestService()
	owner := uuid.New()
	id, _ := svc.CreateSession(owner)

	svc.UploadFile(id, owner, "sales.csv", []byte(sessionCSV))
	svc.ApplyMapping(id, owner)

	st.failInsert = true
	w, err := svc.Commit(context.Background(), id, owner, "2026-04", RowTypeActual)

	var commitErr *CommitError
	if !errors.As(err, &commitErr) {
		t.Fatalf("Commit() error = %v, want CommitError", err)
	}
	if w.Stage != StageValidation {
		t.Errorf("Stage = %q after failure, want %q", w.Stage, StageValidation)
	}
	if len(w.Rows) != 2 {
		t.Errorf("rows = %d after failure, want working set intact", len(w.Rows))
	}
	if w.Failure == "" {
		t.Errorf("Failure not recorded on the snapshot")
	}

	// Retry succeeds once the store recovers.
	st.failInsert = false
	w, err = svc.Commit(context.Background(), id, owner, "2026-04", RowTypeActual)
	if err != nil {
		t.Fatalf("retry Commit() error = %v", err)
	}
	if w.Stage != StageDone {
		t.Errorf("Stage = %q after retry, want %q", w.Stage, StageDone)
	}
}

func TestService_UploadFailureLeavesSessionUntouched(t *testing.T) {
	svc, _ := newTestService()
	owner := uuid.New()
	id, _ := svc.CreateSession(owner)

	if _, err := svc.UploadFile(id, owner, "report.pdf", []byte("nope")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("UploadFile() error = %v, want ErrUnsupportedFormat", err)
	}

	w, _ := svc.Snapshot(id, owner)
	if w.Stage != StageUpload {
		t.Errorf("Stage = %q after failed upload, want %q", w.Stage, StageUpload)
	}
}

func TestService_BindAndEdit(t *testing.T) {
	svc, _ := newTestService()
	owner := uuid.New()
	id, _ := svc.CreateSession(owner)

	svc.UploadFile(id, owner, "sales.csv", []byte(sessionCSV))

	w, err := svc.Bind(id, owner, schema.KeyNotes, "Revenue")
	if err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	if w.Mapping[schema.KeyNotes] != "Revenue" {
		t.Errorf("binding not applied: %v", w.Mapping)
	}

	svc.ApplyMapping(id, owner)

	w, err = svc.EditCell(id, owner, 2, schema.KeyShipperName, StringCell("Hapag"))
	if err != nil {
		t.Fatalf("EditCell() error = %v", err)
	}
	if w.Rows[1].ShipperName != "Hapag" {
		t.Errorf("edit not applied: %+v", w.Rows[1])
	}

	w, err = svc.RemoveRow(id, owner, 1)
	if err != nil {
		t.Fatalf("RemoveRow() error = %v", err)
	}
	if len(w.Rows) != 1 {
		t.Errorf("rows = %d after removal, want 1", len(w.Rows))
	}
}

func TestService_SweepExpired(t *testing.T) {
	st := newFakeStore()
	svc := NewService(st, 2, 10*time.Millisecond)
	owner := uuid.New()

	id, _ := svc.CreateSession(owner)

	time.Sleep(25 * time.Millisecond)
	svc.sweepExpired()

	if svc.OpenSessions() != 0 {
		t.Errorf("OpenSessions() = %d after sweep, want 0", svc.OpenSessions())
	}
	if _, err := svc.Snapshot(id, owner); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Snapshot after sweep error = %v, want ErrSessionNotFound", err)
	}

	// Fresh sessions survive the sweep.
	id2, _ := svc.CreateSession(owner)
	svc.sweepExpired()
	if _, err := svc.Snapshot(id2, owner); err != nil {
		t.Errorf("fresh session swept: %v", err)
	}
}
