// Package eventbus provides a typed publish/subscribe event bus that lets the
// orchestrator report what happened without knowing who is listening.
package eventbus

import "github.com/colonyops/lens/internal/core/review"

// Event names. Keep list sorted A-Z.
const (
	EventArtifactReady     Event = "artifact.ready"
	EventDraftFormatted    Event = "draft.formatted"
	EventNoticePublished   Event = "notice.published"
	EventReplyReceived     Event = "reply.received"
	EventResponseDiscarded Event = "response.discarded"
	EventReviewFailed      Event = "review.failed"
	EventSessionCreated    Event = "session.created"
	EventSessionDeleted    Event = "session.deleted"
	EventSessionSelected   Event = "session.selected"
)

// ArtifactReadyPayload is emitted when a fix or generated tests arrive for
// the active session.
type ArtifactReadyPayload struct {
	SessionID string
	Kind      review.ArtifactKind
}

// DraftFormattedPayload is emitted when a format request completes. Applied is
// false when the draft changed while the request was in flight.
type DraftFormattedPayload struct {
	Applied bool
}

// NoticeLevel is the severity of a user-facing notice.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// NoticePublishedPayload is a user-facing message derived from other events.
type NoticePublishedPayload struct {
	Level   NoticeLevel
	Message string
}

// ReplyReceivedPayload is emitted when a follow-up exchange completes. Failed
// is set when the assistant message is a synthetic error reply.
type ReplyReceivedPayload struct {
	SessionID string
	Failed    bool
}

// ResponseDiscardedPayload is emitted when a backend response arrives after
// the user navigated away from the request's session.
type ResponseDiscardedPayload struct {
	Slot      string
	SessionID string
}

// ReviewFailedPayload is emitted when a review request fails.
type ReviewFailedPayload struct {
	Status int
	Detail string
}

// SessionCreatedPayload is emitted when a successful review creates a session.
type SessionCreatedPayload struct {
	Session review.Session
}

// SessionDeletedPayload is emitted when a session is removed from history.
type SessionDeletedPayload struct {
	SessionID string
	WasActive bool
}

// SessionSelectedPayload is emitted when a stored session becomes active.
type SessionSelectedPayload struct {
	SessionID string
}
