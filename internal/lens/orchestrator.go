// Package lens implements the review session orchestrator: the state machine
// that drives review requests, follow-up conversations, derived artifacts and
// the session history.
package lens

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/colonyops/lens/internal/core/backend"
	"github.com/colonyops/lens/internal/core/eventbus"
	"github.com/colonyops/lens/internal/core/review"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Options configures an Orchestrator.
type Options struct {
	// MaxSessions caps the history; the oldest sessions are dropped when a new
	// one is created. Zero means unlimited.
	MaxSessions int
	// Defaults seeds fresh drafts. Its Code is ignored.
	Defaults review.Draft
	Now      func() time.Time
	NewID    func() string
}

// Orchestrator owns the session collection, the active session, the draft and
// every outstanding backend request. It is safe for concurrent use: state is
// guarded by one mutex and backend calls happen outside it.
type Orchestrator struct {
	gw    backend.Gateway
	store review.Store
	bus   *eventbus.EventBus
	log   zerolog.Logger
	opts  Options

	mu        sync.Mutex
	state     State
	draft     review.Draft
	sessions  []review.Session // newest first
	activeID  string
	conv      *Conversation
	chatOpen  bool
	errMsg    string
	artifacts map[review.ArtifactKind]string
	tracker   *tracker
}

// NewOrchestrator loads the history from store and starts in StateIdle. bus
// may be nil.
func NewOrchestrator(
	ctx context.Context,
	gw backend.Gateway,
	store review.Store,
	bus *eventbus.EventBus,
	log zerolog.Logger,
	opts Options,
) *Orchestrator {
	if opts.Defaults.Validate() != nil {
		opts.Defaults = review.DefaultDraft()
	}
	opts.Defaults.Code = ""
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	o := &Orchestrator{
		gw:        gw,
		store:     store,
		bus:       bus,
		log:       log.With().Str("component", "orchestrator").Logger(),
		opts:      opts,
		state:     StateIdle,
		draft:     opts.Defaults,
		sessions:  store.LoadAll(ctx),
		artifacts: make(map[review.ArtifactKind]string),
		tracker:   newTracker(),
	}
	o.conv = &Conversation{o: o}

	o.log.Debug().Int("sessions", len(o.sessions)).Msg("history loaded")
	return o
}

// Conversation returns the conversation manager for the active session.
func (o *Orchestrator) Conversation() *Conversation {
	return o.conv
}

// RequestReview submits the current draft for review. It is only allowed from
// StateIdle. On success the new session becomes active; on failure the
// orchestrator returns to StateIdle with the draft untouched, the error
// recorded in the view and the *backend.Failure returned. A response that
// arrives after the user navigated elsewhere is dropped with ErrStaleResponse.
func (o *Orchestrator) RequestReview(ctx context.Context) (review.Session, error) {
	o.mu.Lock()
	if o.state != StateIdle {
		o.mu.Unlock()
		return review.Session{}, fmt.Errorf("request review while %s: %w", o.state, ErrInvalidState)
	}

	draft := o.draft
	o.state = StateRequesting
	o.errMsg = ""
	o.conv.reset(nil)
	clear(o.artifacts)

	reqCtx, cancel := context.WithCancel(ctx)
	tk := o.tracker.issue(SlotReview, "", cancel)
	reqCtx = requestContext(reqCtx, tk)
	o.mu.Unlock()
	defer cancel()

	o.logStart(tk)
	out := o.gw.Review(reqCtx, backend.ReviewRequest{
		Code:     draft.Code,
		Language: draft.Language,
		Persona:  draft.Persona,
	})

	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.accept(tk) {
		return review.Session{}, ErrStaleResponse
	}

	if out.OK() && strings.TrimSpace(out.Value) == "" {
		out = backend.Fail[string](&backend.Failure{
			Op:     backend.OpReview,
			Kind:   backend.KindService,
			Detail: "the backend returned an empty review",
		})
	}

	if !out.OK() {
		o.state = StateIdle
		o.errMsg = "Failed to get review: " + out.Failure.Detail
		o.bus.PublishReviewFailed(eventbus.ReviewFailedPayload{
			Status: out.Failure.Status,
			Detail: out.Failure.Detail,
		})
		return review.Session{}, out.Failure
	}

	sess := review.NewSession(o.opts.NewID(), draft, out.Value, o.opts.Now())
	o.sessions = append([]review.Session{sess}, o.sessions...)
	o.trimLocked()
	o.persist(ctx)

	o.activeID = sess.ID
	o.state = StateReviewed
	o.conv.reset(sess.Conversation)

	o.bus.PublishSessionCreated(eventbus.SessionCreatedPayload{Session: sess.Clone()})
	return sess.Clone(), nil
}

// SelectSession makes a stored session active. Any outstanding request is
// abandoned and the conversation buffer is reloaded from the session.
func (o *Orchestrator) SelectSession(id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	idx := o.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("select session %s: %w", id, review.ErrNotFound)
	}

	o.tracker.invalidate()

	sess := o.sessions[idx]
	o.activeID = sess.ID
	o.state = StateReviewed
	o.draft = sess.Draft()
	o.conv.reset(sess.Conversation)
	o.chatOpen = false
	o.errMsg = ""
	clear(o.artifacts)

	o.bus.PublishSessionSelected(eventbus.SessionSelectedPayload{SessionID: sess.ID})
	return nil
}

// NewSession returns to StateIdle with a fresh draft. History is untouched.
func (o *Orchestrator) NewSession() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.resetLocked()
}

// DeleteSession removes a session from history. Deleting the active session
// behaves like NewSession.
func (o *Orchestrator) DeleteSession(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	idx := o.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("delete session %s: %w", id, review.ErrNotFound)
	}

	o.sessions = slices.Delete(o.sessions, idx, idx+1)
	o.persist(ctx)

	wasActive := o.activeID == id
	if wasActive {
		o.resetLocked()
	}

	o.bus.PublishSessionDeleted(eventbus.SessionDeletedPayload{SessionID: id, WasActive: wasActive})
	return nil
}

// ImportSessions merges previously exported sessions into the history.
// Sessions whose ID is already present are skipped. The merged history is
// ordered newest first and trimmed to MaxSessions. The active session and any
// in-flight request are unaffected. It returns how many sessions were added.
func (o *Orchestrator) ImportSessions(ctx context.Context, sessions []review.Session) (int, error) {
	for i := range sessions {
		if err := sessions[i].Validate(); err != nil {
			return 0, fmt.Errorf("import: %w", err)
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	added := 0
	for _, s := range sessions {
		if o.indexOf(s.ID) >= 0 {
			continue
		}
		o.sessions = append(o.sessions, s.Clone())
		added++
	}
	if added == 0 {
		return 0, nil
	}

	slices.SortStableFunc(o.sessions, func(a, b review.Session) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	o.trimLocked()
	o.persist(ctx)

	o.log.Debug().Int("added", added).Int("sessions", len(o.sessions)).Msg("history imported")
	return added, nil
}

// RequestDerived asks the backend for a fix or generated tests for the active
// session. The result is kept as the session's artifact of that kind; the
// session itself is never modified.
func (o *Orchestrator) RequestDerived(ctx context.Context, kind review.ArtifactKind) (string, error) {
	if !kind.IsValid() {
		return "", fmt.Errorf("unknown artifact kind %q", string(kind))
	}
	slot := artifactSlot(kind)

	o.mu.Lock()
	sess, ok := o.activeLocked()
	if !ok {
		o.mu.Unlock()
		return "", ErrNoActiveSession
	}
	if o.tracker.busy(slot) {
		o.mu.Unlock()
		return "", fmt.Errorf("%s: %w", slot, ErrRequestInFlight)
	}

	reqCtx, cancel := context.WithCancel(ctx)
	tk := o.tracker.issue(slot, sess.ID, cancel)
	reqCtx = requestContext(reqCtx, tk)
	o.mu.Unlock()
	defer cancel()

	o.logStart(tk)
	var out backend.Outcome[string]
	switch kind {
	case review.ArtifactFix:
		out = o.gw.Fix(reqCtx, backend.FixRequest{
			Code:     sess.Code,
			Language: sess.Language,
			Review:   sess.Review,
		})
	case review.ArtifactTests:
		out = o.gw.GenerateTests(reqCtx, backend.TestsRequest{
			Code:     sess.Code,
			Language: sess.Language,
		})
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.accept(tk) {
		return "", ErrStaleResponse
	}

	if !out.OK() {
		label := "generate fix"
		if kind == review.ArtifactTests {
			label = "generate tests"
		}
		o.errMsg = fmt.Sprintf("Failed to %s: %s", label, out.Failure.Detail)
		return "", out.Failure
	}

	o.errMsg = ""
	o.artifacts[kind] = out.Value
	o.bus.PublishArtifactReady(eventbus.ArtifactReadyPayload{SessionID: sess.ID, Kind: kind})
	return out.Value, nil
}

// ApplyArtifact copies an artifact of the active session into the draft code.
func (o *Orchestrator) ApplyArtifact(kind review.ArtifactKind) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	text, ok := o.artifacts[kind]
	if !ok {
		return fmt.Errorf("%s: %w", kind, ErrNoArtifact)
	}
	o.draft.Code = text
	return nil
}

// Revise leaves the active session but keeps the draft, so edited code can be
// submitted as a new review.
func (o *Orchestrator) Revise() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateReviewed {
		return fmt.Errorf("revise while %s: %w", o.state, ErrInvalidState)
	}

	draft := o.draft
	o.resetLocked()
	o.draft = draft
	return nil
}

// FormatDraft replaces the draft code with the backend's formatted version.
// The result is only applied if the draft did not change and no navigation
// happened while the request was in flight.
func (o *Orchestrator) FormatDraft(ctx context.Context) (string, error) {
	o.mu.Lock()
	if o.state == StateRequesting {
		o.mu.Unlock()
		return "", fmt.Errorf("format while %s: %w", o.state, ErrInvalidState)
	}
	if o.tracker.busy(SlotFormat) {
		o.mu.Unlock()
		return "", fmt.Errorf("%s: %w", SlotFormat, ErrRequestInFlight)
	}

	draft := o.draft
	reqCtx, cancel := context.WithCancel(ctx)
	tk := o.tracker.issue(SlotFormat, o.activeID, cancel)
	reqCtx = requestContext(reqCtx, tk)
	o.mu.Unlock()
	defer cancel()

	o.logStart(tk)
	out := o.gw.Format(reqCtx, backend.FormatRequest{Code: draft.Code, Language: draft.Language})

	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.accept(tk) {
		return "", ErrStaleResponse
	}

	if !out.OK() {
		o.errMsg = "Failed to format code: " + out.Failure.Detail
		return "", out.Failure
	}

	o.errMsg = ""
	applied := o.draft.Code == draft.Code && o.draft.Language == draft.Language
	if applied {
		o.draft.Code = out.Value
	}
	o.bus.PublishDraftFormatted(eventbus.DraftFormattedPayload{Applied: applied})

	if !applied {
		return out.Value, ErrDraftChanged
	}
	return out.Value, nil
}

// SetDraft replaces the draft. It never touches a session.
func (o *Orchestrator) SetDraft(d review.Draft) error {
	if err := d.Validate(); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.draft = d
	return nil
}

// OpenChat shows the chat panel for the active session.
func (o *Orchestrator) OpenChat() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.activeLocked(); !ok {
		return ErrNoActiveSession
	}
	o.chatOpen = true
	return nil
}

// CloseChat hides the chat panel.
func (o *Orchestrator) CloseChat() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.chatOpen = false
}

// Snapshot returns a copy of the current state.
func (o *Orchestrator) Snapshot() View {
	o.mu.Lock()
	defer o.mu.Unlock()

	v := View{
		State:        o.state,
		Draft:        o.draft,
		Conversation: o.conv.messagesLocked(),
		Pending:      o.conv.pending != nil,
		ChatOpen:     o.chatOpen,
		Error:        o.errMsg,
		Loading:      o.tracker.loading(),
		Artifacts:    make(map[review.ArtifactKind]string, len(o.artifacts)),
		History:      o.sessionsLocked(),
	}
	if sess, ok := o.activeLocked(); ok {
		v.Active = &sess
	}
	for k, text := range o.artifacts {
		v.Artifacts[k] = text
	}

	return v
}

// Sessions returns the history, newest first.
func (o *Orchestrator) Sessions() []review.Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sessionsLocked()
}

func (o *Orchestrator) sessionsLocked() []review.Session {
	out := make([]review.Session, len(o.sessions))
	for i, s := range o.sessions {
		out[i] = s.Clone()
	}
	return out
}

// trimLocked drops the oldest sessions beyond MaxSessions. The active session
// is never dropped.
func (o *Orchestrator) trimLocked() {
	limit := o.opts.MaxSessions
	if limit <= 0 || len(o.sessions) <= limit {
		return
	}
	kept := o.sessions[:0:0]
	for i, s := range o.sessions {
		if i < limit || s.ID == o.activeID {
			kept = append(kept, s)
		}
	}
	o.sessions = kept
}

func (o *Orchestrator) indexOf(id string) int {
	return slices.IndexFunc(o.sessions, func(s review.Session) bool { return s.ID == id })
}

// activeLocked returns a copy of the active session.
func (o *Orchestrator) activeLocked() (review.Session, bool) {
	if o.activeID == "" {
		return review.Session{}, false
	}
	idx := o.indexOf(o.activeID)
	if idx < 0 {
		return review.Session{}, false
	}
	return o.sessions[idx].Clone(), true
}

func (o *Orchestrator) resetLocked() {
	o.tracker.invalidate()
	o.activeID = ""
	o.state = StateIdle
	o.draft = o.opts.Defaults
	o.conv.reset(nil)
	o.chatOpen = false
	o.errMsg = ""
	clear(o.artifacts)
}

// accept releases tk's slot and reports whether its response may be applied.
// Stale responses are logged and announced.
func (o *Orchestrator) accept(tk ticket) bool {
	o.tracker.finish(tk)
	if o.tracker.current(tk, o.activeID) {
		o.log.Debug().
			Str("slot", string(tk.slot)).
			Uint64("seq", tk.seq).
			Str("session_id", tk.sessionID).
			Msg("request finished")
		return true
	}

	o.log.Debug().
		Str("slot", string(tk.slot)).
		Uint64("seq", tk.seq).
		Str("session_id", tk.sessionID).
		Msg("discarding stale response")
	o.bus.PublishResponseDiscarded(eventbus.ResponseDiscardedPayload{
		Slot:      string(tk.slot),
		SessionID: tk.sessionID,
	})
	return false
}

func (o *Orchestrator) logStart(tk ticket) {
	o.log.Debug().
		Str("slot", string(tk.slot)).
		Uint64("seq", tk.seq).
		Str("session_id", tk.sessionID).
		Msg("request started")
}

// persist writes the whole collection. Failures are logged; in-memory state
// stays authoritative.
func (o *Orchestrator) persist(ctx context.Context) {
	if err := o.store.SaveAll(context.WithoutCancel(ctx), o.sessions); err != nil {
		o.log.Warn().Err(err).Msg("failed to persist history")
	}
}
