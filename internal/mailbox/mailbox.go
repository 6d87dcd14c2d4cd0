// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package mailbox provides an unbounded FIFO queue with a single consumer.
// Push never blocks; the lock is held only while the slice is touched.
package mailbox

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Pop once the mailbox is closed and empty.
var ErrClosed = errors.New("mailbox closed")

type Mailbox[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
	signal chan struct{}
	done   chan struct{}
}

func New[T any]() *Mailbox[T] {
	return &Mailbox[T]{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Push appends v and returns the queue depth after the push.
// It reports false, and drops v, when the mailbox is closed.
func (m *Mailbox[T]) Push(v T) (int, bool) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, false
	}
	m.items = append(m.items, v)
	n := len(m.items)
	m.mu.Unlock()

	select {
	case m.signal <- struct{}{}:
	default:
	}
	return n, true
}

// TryPop removes the head without waiting.
func (m *Mailbox[T]) TryPop() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.popLocked()
}

func (m *Mailbox[T]) popLocked() (T, bool) {
	var zero T
	if len(m.items) == 0 {
		return zero, false
	}
	v := m.items[0]
	m.items[0] = zero
	m.items = m.items[1:]
	if len(m.items) == 0 {
		m.items = nil
	}
	return v, true
}

// Pop waits for the next item. Items pushed before Close are still returned;
// after that Pop returns ErrClosed.
func (m *Mailbox[T]) Pop(ctx context.Context) (T, error) {
	for {
		m.mu.Lock()
		v, ok := m.popLocked()
		closed := m.closed
		m.mu.Unlock()
		if ok {
			return v, nil
		}
		if closed {
			var zero T
			return zero, ErrClosed
		}

		select {
		case <-m.signal:
		case <-m.done:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// Ready is signalled after a push. It is meant for select loops that also
// watch other channels; always follow a wake-up with TryPop until it is empty.
func (m *Mailbox[T]) Ready() <-chan struct{} { return m.signal }

// Done is closed when the mailbox is closed.
func (m *Mailbox[T]) Done() <-chan struct{} { return m.done }

func (m *Mailbox[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Close rejects further pushes. It is safe to call more than once.
func (m *Mailbox[T]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	close(m.done)
}

// Drain closes the mailbox and returns everything still queued.
func (m *Mailbox[T]) Drain() []T {
	m.Close()
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.items
	m.items = nil
	return out
}
