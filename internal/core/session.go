package core

// session.go owns the live import sessions. Each session wraps one wizard
// value plus a mutex: actions on a session are serialized and each runs to
// completion before the next is accepted, which is the whole concurrency
// model of the wizard. Different sessions are independent.
//
// Sessions are owner-scoped. Every accessor takes the caller's owner ID
// and refuses to resolve a session created by someone else; a foreign
// session is indistinguishable from a missing one.

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultSessionTTL is how long an idle session survives before the
// sweeper discards it.
const DefaultSessionTTL = 30 * time.Minute

// Service owns the session registry and the import pipeline dependencies.
type Service struct {
	store    Store
	importer *Importer
	limiter  *SessionLimiter
	ttl      time.Duration

	mu       sync.RWMutex
	sessions map[uuid.UUID]*session
}

type session struct {
	mu         sync.Mutex
	owner      uuid.UUID
	wizard     Wizard
	lastActive time.Time
}

// NewService creates a Service backed by the given store.
func NewService(store Store, maxSessions int, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Service{
		store:    store,
		importer: NewImporter(store),
		limiter:  NewSessionLimiter(maxSessions),
		ttl:      ttl,
		sessions: make(map[uuid.UUID]*session),
	}
}

// Store exposes the service's persistence layer for query handlers.
func (s *Service) Store() Store { return s.store }

// Importer exposes the batch importer for the stateless commit endpoint.
func (s *Service) Importer() *Importer { return s.importer }

// CreateSession opens a new wizard session for owner and returns its ID.
func (s *Service) CreateSession(owner uuid.UUID) (uuid.UUID, error) {
	if !s.limiter.TryAcquire() {
		return uuid.Nil, ErrTooManySessions
	}

	id := uuid.New()
	s.mu.Lock()
	s.sessions[id] = &session{
		owner:      owner,
		wizard:     NewWizard(),
		lastActive: time.Now(),
	}
	s.mu.Unlock()

	slog.Info("import session opened", "session_id", id, "owner_id", owner)
	return id, nil
}

// CloseSession discards a session and frees its slot.
func (s *Service) CloseSession(id, owner uuid.UUID) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok && sess.owner == owner {
		delete(s.sessions, id)
	} else {
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}

	s.limiter.Release()
	slog.Info("import session closed", "session_id", id)
	return nil
}

// Snapshot returns the session's current wizard state.
func (s *Service) Snapshot(id, owner uuid.UUID) (Wizard, error) {
	sess, err := s.lookup(id, owner)
	if err != nil {
		return Wizard{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.wizard, nil
}

// UploadFile extracts an uploaded file and advances the session to the
// mapping stage. On extraction failure the session stays in Upload with
// no side effects.
func (s *Service) UploadFile(id, owner uuid.UUID, filename string, data []byte) (Wizard, error) {
	table, err := Extract(filename, data)
	if err != nil {
		return Wizard{}, err
	}

	return s.apply(id, owner, func(w Wizard) (Wizard, error) {
		return w.LoadTable(filename, table)
	})
}

// Bind overrides one column binding in the mapping stage.
func (s *Service) Bind(id, owner uuid.UUID, fieldKey, header string) (Wizard, error) {
	return s.apply(id, owner, func(w Wizard) (Wizard, error) {
		return w.Bind(fieldKey, header)
	})
}

// ApplyMapping transforms the raw rows into the working set.
func (s *Service) ApplyMapping(id, owner uuid.UUID) (Wizard, error) {
	return s.apply(id, owner, func(w Wizard) (Wizard, error) {
		return w.ApplyMapping()
	})
}

// EditCell applies a single cell edit and re-validates that row.
func (s *Service) EditCell(id, owner uuid.UUID, rowNumber int, fieldKey string, value Cell) (Wizard, error) {
	return s.apply(id, owner, func(w Wizard) (Wizard, error) {
		return w.EditCell(rowNumber, fieldKey, value)
	})
}

// RemoveRow drops one row from the working set.
func (s *Service) RemoveRow(id, owner uuid.UUID, rowNumber int) (Wizard, error) {
	return s.apply(id, owner, func(w Wizard) (Wizard, error) {
		return w.RemoveRow(rowNumber)
	})
}

// Back steps the session one wizard stage backward.
func (s *Service) Back(id, owner uuid.UUID) (Wizard, error) {
	return s.apply(id, owner, func(w Wizard) (Wizard, error) {
		return w.Back()
	})
}

// Reset returns the session to a fresh upload stage.
func (s *Service) Reset(id, owner uuid.UUID) (Wizard, error) {
	return s.apply(id, owner, func(w Wizard) (Wizard, error) {
		return w.Reset(), nil
	})
}

// Commit runs the full working set through the batch importer. On success
// the session moves to Done holding the report; on failure it returns to
// Validation with the working set intact and the error is surfaced to the
// caller. The session mutex is held throughout, so no other action can
// interleave with an in-flight commit.
func (s *Service) Commit(ctx context.Context, id, owner uuid.UUID, periodKey string, rowType RowType) (Wizard, error) {
	sess, err := s.lookup(id, owner)
	if err != nil {
		return Wizard{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastActive = time.Now()

	importing, err := sess.wizard.BeginCommit()
	if err != nil {
		return sess.wizard, err
	}
	sess.wizard = importing

	key := GroupKey{OwnerID: owner, PeriodKey: periodKey, RowType: rowType}
	report, err := s.importer.Import(ctx, key, importing.Rows)
	if err != nil {
		failed, _ := sess.wizard.FailCommit(err.Error())
		sess.wizard = failed
		return sess.wizard, err
	}

	done, err := sess.wizard.CompleteCommit(report)
	if err != nil {
		return sess.wizard, err
	}
	sess.wizard = done
	return sess.wizard, nil
}

// OpenSessions returns the number of live sessions, for monitoring.
func (s *Service) OpenSessions() int {
	return s.limiter.ActiveCount()
}

// WaitForDrain blocks until all sessions are closed or ctx is cancelled.
func (s *Service) WaitForDrain(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// StartSessionSweeper runs a background loop that discards sessions idle
// past the TTL. It stops when ctx is cancelled.
func (s *Service) StartSessionSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	slog.Info("session sweeper started", "interval", interval, "ttl", s.ttl)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session sweeper stopped")
			return
		case <-ticker.C:
			s.sweepExpired()
		}
	}
}

// sweepExpired removes every session idle past the TTL.
func (s *Service) sweepExpired() {
	cutoff := time.Now().Add(-s.ttl)

	s.mu.Lock()
	var expired []uuid.UUID
	for id, sess := range s.sessions {
		if sess.lastActive.Before(cutoff) {
			expired = append(expired, id)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, id := range expired {
		s.limiter.Release()
		slog.Info("expired import session swept", "session_id", id)
	}
}

// lookup resolves a session for its owner.
func (s *Service) lookup(id, owner uuid.UUID) (*session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok || sess.owner != owner {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// apply runs one wizard transition under the session mutex, committing
// the new snapshot only when the transition succeeded.
func (s *Service) apply(id, owner uuid.UUID, fn func(Wizard) (Wizard, error)) (Wizard, error) {
	sess, err := s.lookup(id, owner)
	if err != nil {
		return Wizard{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastActive = time.Now()

	next, err := fn(sess.wizard)
	if err != nil {
		return sess.wizard, err
	}
	sess.wizard = next
	return next, nil
}
