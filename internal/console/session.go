// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package console

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"seedfast/docshell/internal/bus"
	"seedfast/docshell/internal/events"
	"seedfast/docshell/internal/guard"
)

// ErrReentrantCall is returned by Call when it is made while a foreground
// handler runs. The handler holds the loop, so the response could never be
// delivered; use Send and OnResponse there instead.
var ErrReentrantCall = stderrors.New("console: Call from a foreground handler")

// Session is one foreground sender: it issues requests under its own token
// and receives their responses, and optionally notifications, on the loop.
type Session struct {
	console *Console
	sender  *guard.Sender
	subs    []*bus.Subscription

	mu      sync.Mutex
	waiting map[events.RequestID]*waiter

	onResponse func(events.Response)
}

type waiter struct {
	done chan struct{}
	resp events.Response
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// OnResponse sets a handler for responses nobody is waiting for in Call.
func OnResponse(fn func(events.Response)) SessionOption {
	return func(s *Session) { s.onResponse = fn }
}

// NewSession registers a sender and subscribes it to every response kind.
// notify, when non-nil, receives every notification on the foreground loop.
func (c *Console) NewSession(notify func(events.Message), opts ...SessionOption) (*Session, error) {
	s := &Session{
		console: c,
		sender:  c.guard.NewSender(),
		waiting: make(map[events.RequestID]*waiter),
	}
	for _, opt := range opts {
		opt(s)
	}

	sub, err := c.bus.Subscribe(s.sender.ID(), events.ResponseKinds(), bus.ForegroundOnly, s.deliver)
	if err != nil {
		s.sender.Close()
		return nil, fmt.Errorf("subscribe session: %w", err)
	}
	s.subs = append(s.subs, sub)

	if notify != nil {
		sub, err := c.bus.Subscribe(s.sender.ID(), events.NotificationKinds(), bus.ForegroundOnly, notify)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("subscribe notifications: %w", err)
		}
		s.subs = append(s.subs, sub)
	}
	return s, nil
}

// Token is the sender token to stamp on requests.
func (s *Session) Token() guard.Token { return s.sender.Token() }

// ID returns the session's sender id.
func (s *Session) ID() guard.SenderID { return s.sender.ID() }

// InFlight returns the number of requests still waiting for a response.
func (s *Session) InFlight() int { return s.console.guard.Pending(s.sender.ID()) }

// Invalidate drops the responses of every request issued so far.
func (s *Session) Invalidate() { s.sender.Invalidate() }

// Send publishes req without waiting. Its response goes to the OnResponse handler.
func (s *Session) Send(req events.Request) {
	s.console.bus.Publish(req)
}

// Call publishes req and drives the foreground loop until its response has
// been delivered. If another goroutine already drives the loop, Call only
// waits. When ctx ends first the session is invalidated, so the late
// response and those of other requests still in flight are dropped.
// Inside a foreground handler Call fails at once with ErrReentrantCall and
// publishes nothing.
func (s *Session) Call(ctx context.Context, req events.Request) (events.Response, error) {
	if s.console.Loop().InDispatch() {
		return nil, fmt.Errorf("%s: %w", req.Kind(), ErrReentrantCall)
	}
	id := req.Envelope().ID
	w := &waiter{done: make(chan struct{})}
	s.mu.Lock()
	s.waiting[id] = w
	s.mu.Unlock()

	s.console.bus.Publish(req)

	err := s.console.Loop().RunUntil(ctx, w.done)
	if stderrors.Is(err, bus.ErrLoopBusy) {
		select {
		case <-w.done:
			err = nil
		case <-ctx.Done():
			err = ctx.Err()
		}
	}

	select {
	case <-w.done:
		return w.resp, nil
	default:
	}

	s.mu.Lock()
	delete(s.waiting, id)
	s.mu.Unlock()

	if err == nil {
		// RunUntil only returns nil early when the bus closed
		return nil, fmt.Errorf("%s: %w", req.Kind(), bus.ErrClosed)
	}
	s.sender.Invalidate()
	return nil, fmt.Errorf("%s: %w", req.Kind(), err)
}

func (s *Session) deliver(msg events.Message) {
	resp, ok := msg.(events.Response)
	if !ok {
		return
	}
	id := resp.Envelope().ID

	s.mu.Lock()
	w := s.waiting[id]
	delete(s.waiting, id)
	s.mu.Unlock()

	if w != nil {
		w.resp = resp
		close(w.done)
		return
	}
	if s.onResponse != nil {
		s.onResponse(resp)
	}
}

// Close unsubscribes and destroys the sender. Responses still in flight are dropped.
func (s *Session) Close() {
	for _, sub := range s.subs {
		sub.Close()
	}
	s.sender.Close()
}
