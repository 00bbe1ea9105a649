package lens

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/colonyops/lens/internal/core/backend"
	"github.com/colonyops/lens/internal/core/eventbus"
	"github.com/colonyops/lens/internal/core/review"
)

// errorReplyPrefix starts the synthetic assistant message stored when a
// follow-up fails.
const errorReplyPrefix = "Sorry, I ran into an error: "

// Conversation manages the follow-up chat of the active session. Its buffer
// holds the completed exchanges plus at most one pending user turn; only
// completed exchanges are written back to the session.
type Conversation struct {
	o *Orchestrator

	// guarded by o.mu
	messages []review.Message
	pending  *review.Message
}

// AppendUserMessage stages a user turn. It shows up in Messages immediately
// and is sent by the next Submit.
func (c *Conversation) AppendUserMessage(text string) error {
	c.o.mu.Lock()
	defer c.o.mu.Unlock()

	if _, ok := c.o.activeLocked(); !ok {
		return ErrNoActiveSession
	}
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	if c.pending != nil {
		return ErrPendingMessage
	}

	msg := review.UserMessage(text)
	c.pending = &msg
	return nil
}

// Submit sends the whole conversation, with the session's code, language and
// review, to the backend. The backend keeps no state, so every call carries
// the full history.
//
// On success the reply is appended. On failure a synthetic assistant message
// carrying the error is appended instead and the *backend.Failure returned.
// Either way the completed exchange is stored on the session and persisted. If
// the user navigated away before the reply arrived nothing is applied and
// ErrStaleResponse is returned.
func (c *Conversation) Submit(ctx context.Context) (string, error) {
	o := c.o

	o.mu.Lock()
	sess, ok := o.activeLocked()
	if !ok {
		o.mu.Unlock()
		return "", ErrNoActiveSession
	}
	if c.pending == nil {
		o.mu.Unlock()
		return "", ErrNoPendingMessage
	}
	if o.tracker.busy(SlotFollowUp) {
		o.mu.Unlock()
		return "", fmt.Errorf("%s: %w", SlotFollowUp, ErrRequestInFlight)
	}

	payload := append(slices.Clone(c.messages), *c.pending)
	reqCtx, cancel := context.WithCancel(ctx)
	tk := o.tracker.issue(SlotFollowUp, sess.ID, cancel)
	reqCtx = requestContext(reqCtx, tk)
	o.mu.Unlock()
	defer cancel()

	o.logStart(tk)
	out := o.gw.FollowUp(reqCtx, backend.FollowUpRequest{
		Code:         sess.Code,
		Language:     sess.Language,
		Review:       sess.Review,
		Conversation: payload,
	})

	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.accept(tk) {
		return "", ErrStaleResponse
	}

	reply := out.Value
	if !out.OK() {
		reply = errorReplyPrefix + out.Failure.Detail
	}

	c.messages = append(c.messages, *c.pending, review.AssistantMessage(reply))
	c.pending = nil

	if idx := o.indexOf(sess.ID); idx >= 0 {
		o.sessions[idx].Conversation = slices.Clone(c.messages)
		o.persist(ctx)
	}

	o.bus.PublishReplyReceived(eventbus.ReplyReceivedPayload{SessionID: sess.ID, Failed: !out.OK()})

	if !out.OK() {
		return reply, out.Failure
	}
	return reply, nil
}

// Ask is AppendUserMessage followed by Submit.
func (c *Conversation) Ask(ctx context.Context, text string) (string, error) {
	if err := c.AppendUserMessage(text); err != nil {
		return "", err
	}
	return c.Submit(ctx)
}

// Messages returns a copy of the buffer, including a pending user turn.
func (c *Conversation) Messages() []review.Message {
	c.o.mu.Lock()
	defer c.o.mu.Unlock()
	return c.messagesLocked()
}

func (c *Conversation) messagesLocked() []review.Message {
	out := make([]review.Message, 0, len(c.messages)+1)
	out = append(out, c.messages...)
	if c.pending != nil {
		out = append(out, *c.pending)
	}
	return out
}

// reset replaces the buffer with a copy of stored and drops any pending turn.
// Callers hold o.mu.
func (c *Conversation) reset(stored []review.Message) {
	c.messages = slices.Clone(stored)
	c.pending = nil
}
