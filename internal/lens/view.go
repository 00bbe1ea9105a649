package lens

import "github.com/colonyops/lens/internal/core/review"

// State is the Orchestrator's top-level state.
type State int

const (
	// StateIdle means no session is active and the draft is editable.
	StateIdle State = iota
	// StateRequesting means a review request is in flight.
	StateRequesting
	// StateReviewed means a session is active.
	StateReviewed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequesting:
		return "requesting"
	case StateReviewed:
		return "reviewed"
	default:
		return "unknown"
	}
}

// Slot identifies a kind of outstanding request. Each slot holds at most one
// request at a time; different slots may overlap.
type Slot string

const (
	SlotReview   Slot = "review"
	SlotFollowUp Slot = "follow-up"
	SlotFix      Slot = "fix"
	SlotTests    Slot = "tests"
	SlotFormat   Slot = "format"
)

func artifactSlot(kind review.ArtifactKind) Slot {
	if kind == review.ArtifactTests {
		return SlotTests
	}
	return SlotFix
}

// View is an immutable copy of everything a presentation layer renders.
type View struct {
	State State
	Draft review.Draft
	// Active is nil unless State is StateReviewed.
	Active *review.Session
	// Conversation is the active buffer, including a pending user turn.
	Conversation []review.Message
	Pending      bool
	ChatOpen     bool
	// Error is the user-visible message of the last failed request.
	Error     string
	Loading   map[Slot]bool
	Artifacts map[review.ArtifactKind]string
	History   []review.Session
}

// IsLoading reports whether a request is in flight for slot.
func (v View) IsLoading(slot Slot) bool {
	return v.Loading[slot]
}
