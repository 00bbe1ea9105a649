package lens

import "errors"

// Usage errors returned by the Orchestrator and Conversation. Backend failures
// are returned as *backend.Failure instead.
var (
	ErrInvalidState     = errors.New("operation not allowed in the current state")
	ErrNoActiveSession  = errors.New("no active session")
	ErrRequestInFlight  = errors.New("a request of this kind is already in flight")
	ErrNoArtifact       = errors.New("no artifact of this kind for the active session")
	ErrPendingMessage   = errors.New("a message is already waiting for a reply")
	ErrNoPendingMessage = errors.New("no message to send")
	ErrEmptyMessage     = errors.New("message is empty")
	ErrStaleResponse    = errors.New("response discarded: the session changed while it was in flight")
	ErrDraftChanged     = errors.New("draft changed while formatting; result not applied")
)
