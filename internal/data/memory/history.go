// Package memory provides an in-process review.Store used for tests and for
// runs that should leave no history behind.
package memory

import (
	"context"
	"sync"

	"github.com/colonyops/lens/internal/core/review"
)

// HistoryStore keeps the session collection in memory. Sessions are deep
// copied on the way in and out.
type HistoryStore struct {
	mu       sync.Mutex
	sessions []review.Session
	saves    int
	failSave error
}

var _ review.Store = (*HistoryStore)(nil)

// NewHistoryStore creates a store seeded with sessions.
func NewHistoryStore(seed ...review.Session) *HistoryStore {
	return &HistoryStore{sessions: cloneAll(seed)}
}

func (s *HistoryStore) LoadAll(context.Context) []review.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.sessions)
}

func (s *HistoryStore) SaveAll(_ context.Context, sessions []review.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failSave != nil {
		return review.PersistenceError("write history", s.failSave)
	}
	s.sessions = cloneAll(sessions)
	s.saves++
	return nil
}

// SetFailSave makes subsequent SaveAll calls fail with err. A nil err
// restores normal saving.
func (s *HistoryStore) SetFailSave(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSave = err
}

// Saves returns how many successful SaveAll calls were made.
func (s *HistoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func cloneAll(in []review.Session) []review.Session {
	out := make([]review.Session, len(in))
	for i, sess := range in {
		out[i] = sess.Clone()
	}
	return out
}
