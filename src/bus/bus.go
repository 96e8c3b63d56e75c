// Package bus carries stream events from background workers to the UI
// goroutine. Producers never block; the consumer drains without blocking.
package bus

import (
	"sync"

	"ai-shot/src/messages"
)

// Sender is the sending half handed to workers. Send reports false when the
// bus has been closed and the event was dropped.
type Sender interface {
	Send(ev messages.Event) bool
}

// Bus is an unbounded FIFO queue of events. It is safe for any number of
// concurrent senders and one consumer.
type Bus struct {
	mu     sync.Mutex
	queue  []messages.Event
	closed bool
	ready  chan struct{}
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{ready: make(chan struct{}, 1)}
}

// Send enqueues ev. Events sent by one goroutine are drained in send order.
func (b *Bus) Send(ev messages.Event) bool {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return false
	}
	b.queue = append(b.queue, ev)
	b.mu.Unlock()

	select {
	case b.ready <- struct{}{}:
	default:
	}
	return true
}

// Drain removes and returns every queued event without blocking. It returns
// nil when the queue is empty.
func (b *Bus) Drain() []messages.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.queue) == 0 {
		return nil
	}
	out := b.queue
	b.queue = nil
	return out
}

// Ready is signalled (coalesced) after a send. The UI can use it to schedule
// a redraw instead of polling on a fixed interval.
func (b *Bus) Ready() <-chan struct{} { return b.ready }

// Len returns the number of queued events.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// Close drops queued events and makes further sends no-ops, so workers that
// outlive the overlay can still finish without blocking.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.queue = nil
}
