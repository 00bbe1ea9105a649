package lens

import (
	"context"

	"github.com/colonyops/lens/internal/core/logging"
)

// ticket tags an outstanding request with what it belongs to so that a late
// response can be recognised and dropped.
type ticket struct {
	slot       Slot
	seq        uint64
	generation uint64
	sessionID  string // empty for draft-bound requests
}

type inflight struct {
	seq    uint64
	cancel context.CancelFunc
}

// tracker issues tickets and decides whether a response is still relevant.
// It is not safe for concurrent use; the Orchestrator's mutex guards it.
type tracker struct {
	seq        uint64
	generation uint64
	latest     map[Slot]uint64
	running    map[Slot]inflight
}

func newTracker() *tracker {
	return &tracker{
		latest:  make(map[Slot]uint64),
		running: make(map[Slot]inflight),
	}
}

func (t *tracker) busy(slot Slot) bool {
	_, ok := t.running[slot]
	return ok
}

func (t *tracker) issue(slot Slot, sessionID string, cancel context.CancelFunc) ticket {
	t.seq++
	t.latest[slot] = t.seq
	t.running[slot] = inflight{seq: t.seq, cancel: cancel}
	return ticket{slot: slot, seq: t.seq, generation: t.generation, sessionID: sessionID}
}

// finish releases the slot if tk still owns it.
func (t *tracker) finish(tk ticket) {
	if r, ok := t.running[tk.slot]; ok && r.seq == tk.seq {
		delete(t.running, tk.slot)
	}
}

// current reports whether a response for tk may be applied: no navigation
// happened since it was issued, it is the latest request for its slot and it
// targets the active session.
func (t *tracker) current(tk ticket, activeID string) bool {
	return tk.generation == t.generation &&
		t.latest[tk.slot] == tk.seq &&
		tk.sessionID == activeID
}

// invalidate abandons every outstanding request. Their contexts are canceled
// and their slots freed; responses that still arrive fail current.
func (t *tracker) invalidate() {
	t.generation++
	for slot, r := range t.running {
		r.cancel()
		delete(t.running, slot)
	}
}

func (t *tracker) loading() map[Slot]bool {
	out := make(map[Slot]bool, len(t.running))
	for slot := range t.running {
		out[slot] = true
	}
	return out
}

// requestContext tags ctx with the ticket's slot and session so log lines
// written while the request runs can be correlated.
func requestContext(ctx context.Context, tk ticket) context.Context {
	return logging.WithSlot(logging.WithSessionID(ctx, tk.sessionID), string(tk.slot))
}
