package core

// session_limiter.go bounds the number of concurrently open import
// sessions. Each open wizard holds its raw rows in memory for the life of
// the session, so an unbounded session count is a resource-exhaustion
// vector. The limiter is a plain semaphore: a slot is taken when a session
// opens and returned when it is closed or swept.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManySessions is returned when every session slot is occupied.
// Clients should close a finished session or retry later.
var ErrTooManySessions = errors.New("too many open import sessions, please try again later")

// DefaultMaxSessions is the default limit for open import sessions.
const DefaultMaxSessions = 50

// SessionLimiter controls the number of open import sessions.
type SessionLimiter struct {
	semaphore chan struct{}

	mu     sync.RWMutex
	active int
}

// NewSessionLimiter creates a limiter allowing at most max open sessions.
func NewSessionLimiter(max int) *SessionLimiter {
	if max <= 0 {
		max = DefaultMaxSessions
	}
	return &SessionLimiter{semaphore: make(chan struct{}, max)}
}

// TryAcquire claims a session slot without blocking.
// The caller must Release the slot when the session closes.
func (l *SessionLimiter) TryAcquire() bool {
	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return true
	default:
		return false
	}
}

// Release returns a previously acquired slot.
// Must be called exactly once per successful TryAcquire.
func (l *SessionLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()
	<-l.semaphore
}

// ActiveCount returns the number of currently open sessions.
func (l *SessionLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// MaxSessions returns the configured session limit.
func (l *SessionLimiter) MaxSessions() int {
	return cap(l.semaphore)
}

// WaitForDrain blocks until every session is closed or ctx is cancelled.
// Used during graceful shutdown.
func (l *SessionLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if l.ActiveCount() == 0 {
				return nil
			}
		}
	}
}
