// Package jsonfile persists review history as a single JSON document on disk.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/colonyops/lens/internal/core/review"
	"github.com/rs/zerolog"
)

// HistoryFile is the root JSON structure stored on disk. Sessions are kept
// raw so that a single bad record can be skipped without losing the rest.
type HistoryFile struct {
	Sessions []json.RawMessage `json:"sessions"`
}

// HistoryStore implements review.Store using a JSON file for persistence.
type HistoryStore struct {
	path string
	log  zerolog.Logger
	mu   sync.RWMutex
}

var _ review.Store = (*HistoryStore)(nil)

// NewHistoryStore creates a new JSON file history store at the given path.
func NewHistoryStore(path string, log zerolog.Logger) *HistoryStore {
	return &HistoryStore{
		path: path,
		log:  log.With().Str("component", "history").Str("path", path).Logger(),
	}
}

// Path returns the backing file.
func (s *HistoryStore) Path() string {
	return s.path
}

// LoadAll returns every stored session, newest first. Missing files yield an
// empty slice; unreadable or corrupt content is logged and treated the same.
func (s *HistoryStore) LoadAll(ctx context.Context) []review.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, err := s.load()
	if err != nil {
		s.log.Warn().Err(review.PersistenceError("read history", err)).Msg("ignoring unreadable history")
		return []review.Session{}
	}

	sessions, errs := review.DecodeSessions(raw)
	for _, err := range errs {
		s.log.Warn().Err(err).Msg("skipping history record")
	}

	return sessions
}

// SaveAll replaces the file contents with sessions.
func (s *HistoryStore) SaveAll(ctx context.Context, sessions []review.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file := HistoryFile{Sessions: make([]json.RawMessage, 0, len(sessions))}
	for _, sess := range sessions {
		data, err := json.Marshal(sess)
		if err != nil {
			return review.PersistenceError("encode session "+sess.ID, err)
		}
		file.Sessions = append(file.Sessions, data)
	}

	if err := s.save(file); err != nil {
		return review.PersistenceError("write history", err)
	}
	return nil
}

// load reads the history file from disk. A bare JSON array, the layout of
// older installs, is accepted as well.
func (s *HistoryStore) load() ([]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	if data[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		return raw, nil
	}

	var file HistoryFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	return file.Sessions, nil
}

// save writes the history file to disk atomically.
func (s *HistoryStore) save(file HistoryFile) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}

	return os.Rename(tmp, s.path)
}
