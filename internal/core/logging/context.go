package logging

import "context"

type contextKey string

const (
	sessionIDKey contextKey = "session_id"
	slotKey      contextKey = "slot"
)

// WithSessionID adds a session ID to the context.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// WithSlot adds the request slot (review, follow-up, fix, ...) to the context.
func WithSlot(ctx context.Context, slot string) context.Context {
	return context.WithValue(ctx, slotKey, slot)
}

// GetSessionID retrieves the session ID from the context.
// Returns empty string if not present.
func GetSessionID(ctx context.Context) string {
	if id, ok := ctx.Value(sessionIDKey).(string); ok {
		return id
	}
	return ""
}

// GetSlot retrieves the request slot from the context.
// Returns empty string if not present.
func GetSlot(ctx context.Context) string {
	if slot, ok := ctx.Value(slotKey).(string); ok {
		return slot
	}
	return ""
}
