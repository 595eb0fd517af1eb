package feed

import (
	"sort"
	"sync"

	"marketstream/pkg/marketdata"
)

// Status is a connection state transition broadcast to observers.
type Status struct {
	// State is the state label (connecting, authenticating, ...).
	State ConnState
	// Detail carries the error tag or disconnect reason, when present.
	Detail string
}

// MessageHandler receives parsed data messages in socket-arrival order.
type MessageHandler func(msg marketdata.Message)

// StatusHandler receives connection status transitions.
type StatusHandler func(status Status)

// Bus fans out data messages and status transitions to registered
// observers. Dispatch order across distinct observers is unspecified, but
// each observer sees events in publish order. Safe for concurrent use.
type Bus struct {
	mu             sync.Mutex
	nextID         int
	msgHandlers    map[int]MessageHandler
	statusHandlers map[int]StatusHandler
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{
		msgHandlers:    make(map[int]MessageHandler),
		statusHandlers: make(map[int]StatusHandler),
	}
}

// OnMessage registers a data observer and returns its unregistration
// function. Unregistering is safe at any time, including from inside a
// handler, and does not affect deliveries already in flight.
func (b *Bus) OnMessage(h MessageHandler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.msgHandlers[id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.msgHandlers, id)
	}
}

// OnStatus registers a status observer and returns its unregistration
// function.
func (b *Bus) OnStatus(h StatusHandler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.statusHandlers[id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.statusHandlers, id)
	}
}

// PublishMessage delivers msg to every registered message observer.
// Handlers run on the caller's goroutine, outside the bus lock.
func (b *Bus) PublishMessage(msg marketdata.Message) {
	for _, h := range b.snapshotMessageHandlers() {
		h(msg)
	}
}

// PublishStatus delivers status to every registered status observer.
func (b *Bus) PublishStatus(status Status) {
	for _, h := range b.snapshotStatusHandlers() {
		h(status)
	}
}

func (b *Bus) snapshotMessageHandlers() []MessageHandler {
	b.mu.Lock()
	defer b.mu.Unlock()

	ids := make([]int, 0, len(b.msgHandlers))
	for id := range b.msgHandlers {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]MessageHandler, 0, len(ids))
	for _, id := range ids {
		out = append(out, b.msgHandlers[id])
	}
	return out
}

func (b *Bus) snapshotStatusHandlers() []StatusHandler {
	b.mu.Lock()
	defer b.mu.Unlock()

	ids := make([]int, 0, len(b.statusHandlers))
	for id := range b.statusHandlers {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]StatusHandler, 0, len(ids))
	for _, id := range ids {
		out = append(out, b.statusHandlers[id])
	}
	return out
}
