package eventbus

import "sync"

// hooks are observers of the bus itself rather than of individual events.
type hooks struct {
	mu          sync.RWMutex
	onPublish   []func(Event, any)
	onDrop      []func(Event, any)
	onSubscribe []func(Event)
	onPanic     []func(Event, any, any)
}

// OnPublish registers a hook that fires after an event is enqueued.
func (bus *EventBus) OnPublish(fn func(Event, any)) {
	bus.hooks.mu.Lock()
	defer bus.hooks.mu.Unlock()
	bus.hooks.onPublish = append(bus.hooks.onPublish, fn)
}

// OnDrop registers a hook that fires when an event is dropped due to a full buffer.
func (bus *EventBus) OnDrop(fn func(Event, any)) {
	bus.hooks.mu.Lock()
	defer bus.hooks.mu.Unlock()
	bus.hooks.onDrop = append(bus.hooks.onDrop, fn)
}

// OnSubscribe registers a hook that fires after a subscriber is registered.
func (bus *EventBus) OnSubscribe(fn func(Event)) {
	bus.hooks.mu.Lock()
	defer bus.hooks.mu.Unlock()
	bus.hooks.onSubscribe = append(bus.hooks.onSubscribe, fn)
}

// OnPanic registers a hook that fires when a subscriber panics. The third
// argument is the recovered value.
func (bus *EventBus) OnPanic(fn func(Event, any, any)) {
	bus.hooks.mu.Lock()
	defer bus.hooks.mu.Unlock()
	bus.hooks.onPanic = append(bus.hooks.onPanic, fn)
}

// send enqueues an event without blocking and fires the matching hooks.
func (bus *EventBus) send(event Event, payload any) {
	select {
	case bus.ch <- envelope{event: event, payload: payload}:
		for _, fn := range snapshot(&bus.hooks, &bus.hooks.onPublish) {
			fn(event, payload)
		}
	default:
		for _, fn := range snapshot(&bus.hooks, &bus.hooks.onDrop) {
			fn(event, payload)
		}
	}
}

func (bus *EventBus) runOnSubscribe(event Event) {
	for _, fn := range snapshot(&bus.hooks, &bus.hooks.onSubscribe) {
		fn(event)
	}
}

func (bus *EventBus) runOnPanic(event Event, payload any, recovered any) {
	for _, fn := range snapshot(&bus.hooks, &bus.hooks.onPanic) {
		func() {
			defer func() { recover() }() //nolint:errcheck
			fn(event, payload, recovered)
		}()
	}
}

// snapshot copies a hook list under the read lock so hooks run unlocked.
func snapshot[T any](h *hooks, list *[]T) []T {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]T, len(*list))
	copy(out, *list)
	return out
}
