// Package testbus provides test utilities for the event bus.
// It wraps a real EventBus with event recording and assertion helpers.
package testbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/colonyops/lens/internal/core/eventbus"
)

// RecordedEvent holds a captured event name and payload.
type RecordedEvent struct {
	Event   eventbus.Event
	Payload any
}

// Bus wraps a real EventBus with event recording for tests.
type Bus struct {
	*eventbus.EventBus

	mu     sync.Mutex
	events []RecordedEvent
}

// New creates a test bus, starts it in a background goroutine and records
// every event type. The bus is stopped, and its goroutine joined, when the
// test completes.
func New(t *testing.T) *Bus {
	t.Helper()

	bus := eventbus.New(64)
	tb := &Bus{EventBus: bus}

	bus.SubscribeArtifactReady(func(p eventbus.ArtifactReadyPayload) {
		tb.record(eventbus.EventArtifactReady, p)
	})
	bus.SubscribeDraftFormatted(func(p eventbus.DraftFormattedPayload) {
		tb.record(eventbus.EventDraftFormatted, p)
	})
	bus.SubscribeNoticePublished(func(p eventbus.NoticePublishedPayload) {
		tb.record(eventbus.EventNoticePublished, p)
	})
	bus.SubscribeReplyReceived(func(p eventbus.ReplyReceivedPayload) {
		tb.record(eventbus.EventReplyReceived, p)
	})
	bus.SubscribeResponseDiscarded(func(p eventbus.ResponseDiscardedPayload) {
		tb.record(eventbus.EventResponseDiscarded, p)
	})
	bus.SubscribeReviewFailed(func(p eventbus.ReviewFailedPayload) {
		tb.record(eventbus.EventReviewFailed, p)
	})
	bus.SubscribeSessionCreated(func(p eventbus.SessionCreatedPayload) {
		tb.record(eventbus.EventSessionCreated, p)
	})
	bus.SubscribeSessionDeleted(func(p eventbus.SessionDeletedPayload) {
		tb.record(eventbus.EventSessionDeleted, p)
	})
	bus.SubscribeSessionSelected(func(p eventbus.SessionSelectedPayload) {
		tb.record(eventbus.EventSessionSelected, p)
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		bus.Start(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
	})

	return tb
}

func (tb *Bus) record(event eventbus.Event, payload any) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.events = append(tb.events, RecordedEvent{Event: event, Payload: payload})
}

// Events returns a copy of all recorded events.
func (tb *Bus) Events() []RecordedEvent {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	out := make([]RecordedEvent, len(tb.events))
	copy(out, tb.events)
	return out
}

// Payloads returns the recorded payloads of one event type, in order.
func Payloads[T any](tb *Bus, event eventbus.Event) []T {
	var out []T
	for _, e := range tb.Events() {
		if e.Event != event {
			continue
		}
		if p, ok := e.Payload.(T); ok {
			out = append(out, p)
		}
	}
	return out
}

// Reset clears all recorded events.
func (tb *Bus) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.events = nil
}

// WaitFor blocks until an event of the given type is recorded or the timeout expires.
// Returns true if the event was found.
func (tb *Bus) WaitFor(event eventbus.Event, timeout time.Duration) bool {
	deadline := time.After(timeout)
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	for {
		if tb.has(event) {
			return true
		}
		select {
		case <-deadline:
			return false
		case <-ticker.C:
		}
	}
}

func (tb *Bus) has(event eventbus.Event) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	for _, e := range tb.events {
		if e.Event == event {
			return true
		}
	}
	return false
}

// AssertPublished asserts that an event of the given type was recorded.
func (tb *Bus) AssertPublished(t *testing.T, event eventbus.Event) {
	t.Helper()
	if !tb.WaitFor(event, time.Second) {
		t.Errorf("expected event %q to be published, but it was not", event)
	}
}

// AssertNotPublished asserts that an event of the given type was NOT recorded
// within the given wait period.
func (tb *Bus) AssertNotPublished(t *testing.T, event eventbus.Event, wait time.Duration) {
	t.Helper()
	time.Sleep(wait)
	if tb.has(event) {
		t.Errorf("expected event %q to NOT be published, but it was", event)
	}
}
