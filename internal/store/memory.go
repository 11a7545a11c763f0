package store

// memory.go is a mutex-guarded in-memory core.Store. It backs the test
// suite and local development runs where no Postgres is available
// (DB_DRIVER=memory). Semantics mirror the Postgres store, including
// atomic block reservation of sequence numbers.

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/tigerops/salesops/internal/core"
)

// Memory is an in-memory store.
type Memory struct {
	mu     sync.Mutex
	groups map[core.GroupKey]*core.ImportGroup
	items  map[uuid.UUID][]core.LineItem // keyed by group ID

	// FailInsertAfter, when >= 0, makes InsertLineItem fail once that
	// many inserts have succeeded. Lets tests exercise mid-batch commit
	// failure without a database.
	FailInsertAfter int
	inserted        int
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		groups:          make(map[core.GroupKey]*core.ImportGroup),
		items:           make(map[uuid.UUID][]core.LineItem),
		FailInsertAfter: -1,
	}
}

// UpsertGroup resolves or creates the group for key.
func (s *Memory) UpsertGroup(_ context.Context, key core.GroupKey) (core.ImportGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if g, ok := s.groups[key]; ok {
		return *g, nil
	}
	g := &core.ImportGroup{ID: uuid.New(), Key: key}
	s.groups[key] = g
	return *g, nil
}

// ReserveSequence claims n sequence numbers and returns the first.
func (s *Memory) ReserveSequence(_ context.Context, groupID uuid.UUID, n int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, g := range s.groups {
		if g.ID == groupID {
			g.LastSeq += n
			return g.LastSeq - n + 1, nil
		}
	}
	return 0, fmt.Errorf("reserve sequence: group %s not found", groupID)
}

// InsertLineItem appends one committed row.
func (s *Memory) InsertLineItem(_ context.Context, item core.LineItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailInsertAfter >= 0 && s.inserted >= s.FailInsertAfter {
		return fmt.Errorf("insert line item: connection reset")
	}
	s.inserted++
	s.items[item.GroupID] = append(s.items[item.GroupID], item)
	return nil
}

// FindGroup looks up a group by key without creating it.
func (s *Memory) FindGroup(_ context.Context, key core.GroupKey) (core.ImportGroup, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if g, ok := s.groups[key]; ok {
		return *g, true, nil
	}
	return core.ImportGroup{}, false, nil
}

// ListLineItems returns a group's rows ordered by sequence number.
func (s *Memory) ListLineItems(_ context.Context, groupID uuid.UUID) ([]core.LineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]core.LineItem, len(s.items[groupID]))
	copy(items, s.items[groupID])
	sort.Slice(items, func(i, j int) bool {
		return items[i].SequenceNumber < items[j].SequenceNumber
	})
	return items, nil
}

// MaxSequence returns the highest committed sequence number in the group.
func (s *Memory) MaxSequence(_ context.Context, groupID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	max := 0
	for _, item := range s.items[groupID] {
		if item.SequenceNumber > max {
			max = item.SequenceNumber
		}
	}
	return max, nil
}
