package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Sentinel errors for review operations.
var (
	ErrNotFound        = errors.New("review session not found")
	ErrUnknownLanguage = errors.New("unknown language")
	ErrUnknownPersona  = errors.New("unknown persona")
	ErrUnknownRole     = errors.New("unknown message role")
	ErrEmptyReview     = errors.New("session has no review text")
)

// Error taxonomy shared by the gateway, the stores and the renderer.
var (
	// ErrNetwork is a transport-level failure: no response was received.
	ErrNetwork = errors.New("network failure")
	// ErrService is a non-success response from the backend.
	ErrService = errors.New("service failure")
	// ErrPersistence is a local history read or write failure.
	ErrPersistence = errors.New("persistence failure")
	// ErrRender is a markdown parse or render failure.
	ErrRender = errors.New("render failure")
)

// Store persists the full session collection. Implementations replace the
// whole collection on every save; there are no partial writes.
type Store interface {
	// LoadAll returns every stored session. A missing or corrupt store yields
	// an empty slice; LoadAll never fails.
	LoadAll(ctx context.Context) []Session
	// SaveAll replaces the stored collection with sessions. Errors wrap
	// ErrPersistence and are not fatal to callers.
	SaveAll(ctx context.Context, sessions []Session) error
}

// PersistenceError wraps err so that it matches ErrPersistence.
func PersistenceError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}

// MarshalSessions encodes sessions as a JSON array. A nil slice is encoded
// as an empty array.
func MarshalSessions(sessions []Session) ([]byte, error) {
	if sessions == nil {
		sessions = []Session{}
	}
	return json.Marshal(sessions)
}

// UnmarshalSessions decodes a JSON array of sessions. Records that fail to
// decode or validate are skipped and reported in the returned error slice so
// that one bad record doesn't discard the rest of the history.
func UnmarshalSessions(data []byte) ([]Session, []error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return []Session{}, []error{fmt.Errorf("decode history: %w", err)}
	}
	return DecodeSessions(raw)
}

// DecodeSessions decodes already split session records.
func DecodeSessions(raw []json.RawMessage) ([]Session, []error) {
	var (
		sessions = make([]Session, 0, len(raw))
		errs     []error
		seen     = make(map[string]bool, len(raw))
	)

	for i, rec := range raw {
		var s Session
		if err := json.Unmarshal(rec, &s); err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		if err := s.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		if seen[s.ID] {
			errs = append(errs, fmt.Errorf("record %d: duplicate session id %s", i, s.ID))
			continue
		}
		seen[s.ID] = true
		sessions = append(sessions, s.Clone())
	}

	return sessions, errs
}
