// Package actor provides an unbounded mailbox for goroutines that communicate
// by message passing.
package actor

import "sync"

// Mailbox is an unbounded FIFO queue. Send never blocks, so a coordinator can
// post to any number of mailboxes without waiting on their owners.
//
// A Mailbox has a single consumer. Messages sent from one goroutine are
// received in send order.
type Mailbox[T any] struct {
	mu      sync.Mutex
	pending []T
	closed  bool
	ready   chan struct{}
}

// NewMailbox returns an empty, open mailbox.
func NewMailbox[T any]() *Mailbox[T] {
	return &Mailbox[T]{ready: make(chan struct{}, 1)}
}

// Send appends msg to the mailbox. It reports false if the mailbox is closed,
// in which case msg is dropped.
func (m *Mailbox[T]) Send(msg T) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.pending = append(m.pending, msg)
	m.mu.Unlock()

	select {
	case m.ready <- struct{}{}:
	default:
	}
	return true
}

// Ready returns a channel that has a value whenever the mailbox may hold
// messages. Consumers select on it and then call Drain.
func (m *Mailbox[T]) Ready() <-chan struct{} {
	return m.ready
}

// Drain removes and returns every queued message in send order.
func (m *Mailbox[T]) Drain() []T {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.pending
	m.pending = nil
	return msgs
}

// Close rejects further sends and discards anything still queued.
func (m *Mailbox[T]) Close() {
	m.mu.Lock()
	m.closed = true
	m.pending = nil
	m.mu.Unlock()
}
