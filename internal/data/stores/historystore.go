package stores

import (
	"context"
	"time"

	"github.com/colonyops/lens/internal/core/review"
	"github.com/colonyops/lens/internal/data/db"
	"github.com/rs/zerolog"
)

// HistoryKey is the single record holding the serialized session collection.
const HistoryKey = "reviewHistory"

const (
	busyRetries = 3
	busyWait    = 50 * time.Millisecond
)

// HistoryStore implements review.Store as one JSON array in the kv table.
type HistoryStore struct {
	kv  *KVStore
	log zerolog.Logger
}

var _ review.Store = (*HistoryStore)(nil)

// NewHistoryStore creates a new SQLite-backed history store.
func NewHistoryStore(database *db.DB, log zerolog.Logger) *HistoryStore {
	return &HistoryStore{
		kv:  NewKVStore(database),
		log: log.With().Str("component", "history").Str("backend", "sqlite").Logger(),
	}
}

// LoadAll returns the stored sessions. A missing, unreadable or corrupt record
// is logged and yields an empty slice.
func (s *HistoryStore) LoadAll(ctx context.Context) []review.Session {
	data, err := s.kv.GetRaw(ctx, HistoryKey)
	switch {
	case IsNotFoundError(err):
		return []review.Session{}
	case IsCorruptionError(err):
		s.log.Error().Err(review.PersistenceError("read history", err)).Msg("history database is corrupt")
		return []review.Session{}
	case err != nil:
		s.log.Warn().Err(review.PersistenceError("read history", err)).Msg("ignoring unreadable history")
		return []review.Session{}
	}

	sessions, errs := review.UnmarshalSessions(data)
	for _, err := range errs {
		s.log.Warn().Err(err).Msg("skipping history record")
	}
	return sessions
}

// SaveAll replaces the stored record with sessions, retrying briefly while
// another process holds the write lock.
func (s *HistoryStore) SaveAll(ctx context.Context, sessions []review.Session) error {
	data, err := review.MarshalSessions(sessions)
	if err != nil {
		return review.PersistenceError("encode history", err)
	}

	wait := busyWait
	for attempt := 0; ; attempt++ {
		err = s.kv.SetRaw(ctx, HistoryKey, data)
		if err == nil {
			return nil
		}
		if !IsBusyError(err) || attempt == busyRetries {
			return review.PersistenceError("write history", err)
		}

		s.log.Debug().Err(err).Int("attempt", attempt+1).Msg("database busy, retrying")
		select {
		case <-ctx.Done():
			return review.PersistenceError("write history", ctx.Err())
		case <-time.After(wait):
		}
		wait *= 2
	}
}
