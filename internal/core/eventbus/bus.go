package eventbus

import (
	"context"
	"sync"
)

// Event identifies an event type.
type Event string

type envelope struct {
	event   Event
	payload any
}

// EventBus delivers events to subscribers on a single dispatch goroutine.
// Publishing never blocks: when the buffer is full the event is dropped and
// OnDrop hooks fire. A nil *EventBus accepts and discards every publish.
type EventBus struct {
	ch    chan envelope
	hooks hooks

	mu   sync.RWMutex
	subs map[Event][]func(any)
}

// New creates a bus with the given buffer size.
func New(buffer int) *EventBus {
	return &EventBus{
		ch:   make(chan envelope, buffer),
		subs: make(map[Event][]func(any)),
	}
}

// Start dispatches events until ctx is done, then delivers whatever is still
// buffered and returns.
func (bus *EventBus) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			bus.drain()
			return
		case env := <-bus.ch:
			bus.dispatch(env)
		}
	}
}

func (bus *EventBus) drain() {
	for {
		select {
		case env := <-bus.ch:
			bus.dispatch(env)
		default:
			return
		}
	}
}

func (bus *EventBus) dispatch(env envelope) {
	bus.mu.RLock()
	subs := make([]func(any), len(bus.subs[env.event]))
	copy(subs, bus.subs[env.event])
	bus.mu.RUnlock()

	for _, fn := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					bus.runOnPanic(env.event, env.payload, r)
				}
			}()
			fn(env.payload)
		}()
	}
}

func (bus *EventBus) subscribe(event Event, fn func(any)) {
	bus.mu.Lock()
	bus.subs[event] = append(bus.subs[event], fn)
	bus.mu.Unlock()
	bus.runOnSubscribe(event)
}

func subscribe[T any](bus *EventBus, event Event, fn func(T)) {
	bus.subscribe(event, func(p any) { fn(p.(T)) })
}

func publish[T any](bus *EventBus, event Event, payload T) {
	if bus == nil {
		return
	}
	bus.send(event, payload)
}

func (bus *EventBus) PublishArtifactReady(p ArtifactReadyPayload) {
	publish(bus, EventArtifactReady, p)
}

func (bus *EventBus) SubscribeArtifactReady(fn func(ArtifactReadyPayload)) {
	subscribe(bus, EventArtifactReady, fn)
}

func (bus *EventBus) PublishDraftFormatted(p DraftFormattedPayload) {
	publish(bus, EventDraftFormatted, p)
}

func (bus *EventBus) SubscribeDraftFormatted(fn func(DraftFormattedPayload)) {
	subscribe(bus, EventDraftFormatted, fn)
}

func (bus *EventBus) PublishNoticePublished(p NoticePublishedPayload) {
	publish(bus, EventNoticePublished, p)
}

func (bus *EventBus) SubscribeNoticePublished(fn func(NoticePublishedPayload)) {
	subscribe(bus, EventNoticePublished, fn)
}

func (bus *EventBus) PublishReplyReceived(p ReplyReceivedPayload) {
	publish(bus, EventReplyReceived, p)
}

func (bus *EventBus) SubscribeReplyReceived(fn func(ReplyReceivedPayload)) {
	subscribe(bus, EventReplyReceived, fn)
}

func (bus *EventBus) PublishResponseDiscarded(p ResponseDiscardedPayload) {
	publish(bus, EventResponseDiscarded, p)
}

func (bus *EventBus) SubscribeResponseDiscarded(fn func(ResponseDiscardedPayload)) {
	subscribe(bus, EventResponseDiscarded, fn)
}

func (bus *EventBus) PublishReviewFailed(p ReviewFailedPayload) {
	publish(bus, EventReviewFailed, p)
}

func (bus *EventBus) SubscribeReviewFailed(fn func(ReviewFailedPayload)) {
	subscribe(bus, EventReviewFailed, fn)
}

func (bus *EventBus) PublishSessionCreated(p SessionCreatedPayload) {
	publish(bus, EventSessionCreated, p)
}

func (bus *EventBus) SubscribeSessionCreated(fn func(SessionCreatedPayload)) {
	subscribe(bus, EventSessionCreated, fn)
}

func (bus *EventBus) PublishSessionDeleted(p SessionDeletedPayload) {
	publish(bus, EventSessionDeleted, p)
}

func (bus *EventBus) SubscribeSessionDeleted(fn func(SessionDeletedPayload)) {
	subscribe(bus, EventSessionDeleted, fn)
}

func (bus *EventBus) PublishSessionSelected(p SessionSelectedPayload) {
	publish(bus, EventSessionSelected, p)
}

func (bus *EventBus) SubscribeSessionSelected(fn func(SessionSelectedPayload)) {
	subscribe(bus, EventSessionSelected, fn)
}
