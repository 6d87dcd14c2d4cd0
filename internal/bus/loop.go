// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package bus

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrLoopBusy is returned when a second goroutine tries to drive the Loop.
var ErrLoopBusy = errors.New("bus: loop already running")

// Loop delivers ForegroundOnly messages. The goroutine that runs it is the
// foreground; only one may run it at a time.
type Loop struct {
	bus         *Bus
	running     atomic.Bool
	dispatching atomic.Bool
}

// Run delivers messages until ctx ends or the bus closes.
func (l *Loop) Run(ctx context.Context) error {
	return l.RunUntil(ctx, nil)
}

// RunUntil delivers messages until done is closed, ctx ends or the bus
// closes. done is checked after every delivery, so a handler that closes it
// stops the loop before the next message.
func (l *Loop) RunUntil(ctx context.Context, done <-chan struct{}) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrLoopBusy
	}
	defer l.running.Store(false)

	box := l.bus.foreground
	for {
		for {
			if isClosed(done) {
				return nil
			}
			d, ok := box.TryPop()
			if !ok {
				break
			}
			l.deliver(d)
		}

		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-box.Done():
			return nil
		case <-box.Ready():
		}
	}
}

// Drain delivers everything queued right now and returns how many messages
// were handled. It does not wait for new messages.
func (l *Loop) Drain() int {
	if !l.running.CompareAndSwap(false, true) {
		return 0
	}
	defer l.running.Store(false)

	n := 0
	for {
		d, ok := l.bus.foreground.TryPop()
		if !ok {
			return n
		}
		l.deliver(d)
		n++
	}
}

func (l *Loop) deliver(d delivery) {
	l.dispatching.Store(true)
	defer l.dispatching.Store(false)
	l.bus.dispatch(d.sub, d.msg)
}

// InDispatch reports whether a ForegroundOnly handler is running right now.
// Called from such a handler it is always true.
func (l *Loop) InDispatch() bool { return l.dispatching.Load() }

// Pending returns the number of foreground deliveries waiting.
func (l *Loop) Pending() int { return l.bus.foreground.Len() }

func isClosed(ch <-chan struct{}) bool {
	if ch == nil {
		return false
	}
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
