package eventbus_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/colonyops/lens/internal/core/eventbus"
	"github.com/colonyops/lens/internal/core/eventbus/testbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_DeliversInOrder(t *testing.T) {
	tb := testbus.New(t)

	tb.PublishSessionDeleted(eventbus.SessionDeletedPayload{SessionID: "a"})
	tb.PublishSessionDeleted(eventbus.SessionDeletedPayload{SessionID: "b", WasActive: true})

	require.Eventually(t, func() bool {
		return len(testbus.Payloads[eventbus.SessionDeletedPayload](tb, eventbus.EventSessionDeleted)) == 2
	}, time.Second, 5*time.Millisecond)

	got := testbus.Payloads[eventbus.SessionDeletedPayload](tb, eventbus.EventSessionDeleted)
	assert.Equal(t, "a", got[0].SessionID)
	assert.True(t, got[1].WasActive)
}

func TestEventBus_NilIsNoop(t *testing.T) {
	var bus *eventbus.EventBus
	assert.NotPanics(t, func() {
		bus.PublishSessionSelected(eventbus.SessionSelectedPayload{SessionID: "x"})
	})
}

func TestEventBus_DropsWhenFull(t *testing.T) {
	bus := eventbus.New(1)

	var dropped atomic.Int32
	bus.OnDrop(func(eventbus.Event, any) { dropped.Add(1) })

	// Not started: the first event fills the buffer, the second is dropped.
	bus.PublishSessionSelected(eventbus.SessionSelectedPayload{SessionID: "1"})
	bus.PublishSessionSelected(eventbus.SessionSelectedPayload{SessionID: "2"})

	assert.Equal(t, int32(1), dropped.Load())
}

func TestEventBus_RecoversPanics(t *testing.T) {
	bus := eventbus.New(8)

	var panics, delivered atomic.Int32
	bus.OnPanic(func(eventbus.Event, any, any) { panics.Add(1) })
	bus.SubscribeSessionSelected(func(eventbus.SessionSelectedPayload) { panic("boom") })
	bus.SubscribeSessionSelected(func(eventbus.SessionSelectedPayload) { delivered.Add(1) })

	bus.PublishSessionSelected(eventbus.SessionSelectedPayload{SessionID: "x"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus.Start(ctx) // drains the buffered event and returns

	assert.Equal(t, int32(1), panics.Load())
	assert.Equal(t, int32(1), delivered.Load())
}

func TestEventBus_OnSubscribe(t *testing.T) {
	bus := eventbus.New(1)

	var seen []eventbus.Event
	bus.OnSubscribe(func(e eventbus.Event) { seen = append(seen, e) })
	bus.SubscribeArtifactReady(func(eventbus.ArtifactReadyPayload) {})

	assert.Equal(t, []eventbus.Event{eventbus.EventArtifactReady}, seen)
}
