package commands

import (
	"fmt"
	"strings"

	"github.com/colonyops/lens/internal/core/review"
)

// shortIDLen is how much of a session id listings show.
const shortIDLen = 8

func shortID(id string) string {
	if len(id) > shortIDLen {
		return id[:shortIDLen]
	}
	return id
}

// resolveSession finds the session whose id equals ref or, failing that, the
// only session whose id starts with ref.
func resolveSession(sessions []review.Session, ref string) (review.Session, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return review.Session{}, fmt.Errorf("session id is required")
	}

	var matches []review.Session
	for _, s := range sessions {
		if s.ID == ref {
			return s, nil
		}
		if strings.HasPrefix(s.ID, ref) {
			matches = append(matches, s)
		}
	}

	switch len(matches) {
	case 0:
		return review.Session{}, fmt.Errorf("session %q: %w", ref, review.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		ids := make([]string, len(matches))
		for i, m := range matches {
			ids[i] = shortID(m.ID)
		}
		return review.Session{}, fmt.Errorf("session %q is ambiguous: matches %s", ref, strings.Join(ids, ", "))
	}
}
