package resws

import (
	"sync"
)

type EventType uint8

const (
	// EventConnect fires on every successful connect, first or not.
	EventConnect EventType = iota + 1
	// EventReconnect fires once the reconnect hook of a reconnection has completed.
	EventReconnect
	// EventDisconnect fires when a cycle ends with a transport fault, right before backoff.
	EventDisconnect
	// EventTerminate fires once, when the stream is cancelled.
	EventTerminate
)

func (t EventType) String() string {
	switch t {
	case EventConnect:
		return "connect"
	case EventReconnect:
		return "reconnect"
	case EventDisconnect:
		return "disconnect"
	case EventTerminate:
		return "terminate"
	default:
		return "unknown"
	}
}

// Event describes one lifecycle transition of a Client.
type Event struct {
	Type      EventType
	SessionID string
	Fault     Fault
	Err       error
}

type callback[T any] func(T)

// EventEmitterCallback is a simple event emitter. It maps events (of type K) to
// callbacks receiving values of type V.
type EventEmitterCallback[K comparable, V any] struct {
	listeners map[K][]callback[V]
	lock      sync.RWMutex
}

// NewEventEmitter creates a new EventEmitterCallback and returns a pointer to it.
func NewEventEmitter[K comparable, V any]() *EventEmitterCallback[K, V] {
	return &EventEmitterCallback[K, V]{
		listeners: make(map[K][]callback[V]),
	}
}

// On registers a new listener for the given event.
func (e *EventEmitterCallback[K, V]) On(event K, listener func(V)) {
	e.lock.Lock()
	defer e.lock.Unlock()

	e.listeners[event] = append(e.listeners[event], listener)
}

// Emit calls every listener registered for the given event synchronously, in
// registration order, and returns once all of them have returned.
func (e *EventEmitterCallback[K, V]) Emit(event K, data V) {
	e.lock.RLock()
	listeners := e.listeners[event]
	e.lock.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}
