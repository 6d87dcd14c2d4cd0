// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package bus moves catalog messages between goroutines.
//
// Publish never blocks. Requests and notifications reach every subscription
// interested in their kind; a response reaches only the subscription whose
// identity is the sender of the request it answers, and only if the guard
// settles it at delivery time.
//
// ForegroundOnly handlers run one at a time on the goroutine driving the
// bus's Loop, in publish order. AnyThread handlers run on a serial lane per
// (subscription, sender): lanes of different senders run concurrently, each
// lane stays FIFO.
package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"seedfast/docshell/internal/events"
	"seedfast/docshell/internal/guard"
	"seedfast/docshell/internal/mailbox"
)

// Affinity selects where a handler runs.
type Affinity int

const (
	// ForegroundOnly handlers run on the Loop goroutine.
	ForegroundOnly Affinity = iota
	// AnyThread handlers run on a per-sender lane goroutine.
	AnyThread
)

func (a Affinity) String() string {
	switch a {
	case ForegroundOnly:
		return "foreground"
	case AnyThread:
		return "any"
	default:
		return fmt.Sprintf("affinity(%d)", int(a))
	}
}

// Handler receives one message. It must not block for long on the foreground.
type Handler func(events.Message)

var (
	ErrDuplicateResponseRoute = errors.New("bus: identity already subscribed to this response kind")
	ErrEmptyIdentity          = errors.New("bus: subscription identity is empty")
	ErrNoKinds                = errors.New("bus: subscription has no message kinds")
	ErrClosed                 = errors.New("bus: closed")
)

type routeKey struct {
	identity guard.SenderID
	kind     events.Kind
}

type delivery struct {
	sub *Subscription
	msg events.Message
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger used for routing diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bus) {
		if l != nil {
			b.log = l
		}
	}
}

type Bus struct {
	guard *guard.Guard
	log   *slog.Logger

	mu     sync.RWMutex
	closed bool
	byKind map[events.Kind][]*Subscription
	routes map[routeKey]*Subscription
	nextID uint64

	foreground *mailbox.Mailbox[delivery]
	loop       *Loop
	lanes      sync.WaitGroup
}

// New creates a bus that settles responses against g.
func New(g *guard.Guard, opts ...Option) *Bus {
	b := &Bus{
		guard:      g,
		log:        slog.New(slog.DiscardHandler),
		byKind:     make(map[events.Kind][]*Subscription),
		routes:     make(map[routeKey]*Subscription),
		foreground: mailbox.New[delivery](),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.loop = &Loop{bus: b}
	return b
}

// Loop returns the foreground loop of this bus.
func (b *Bus) Loop() *Loop { return b.loop }

// Guard returns the guard responses are settled against.
func (b *Bus) Guard() *guard.Guard { return b.guard }

// Subscribe registers handler for kinds. Identity names the subscriber; for
// response kinds it must be the SenderID of the requests being answered.
func (b *Bus) Subscribe(identity guard.SenderID, kinds []events.Kind, affinity Affinity, handler Handler) (*Subscription, error) {
	if identity == "" {
		return nil, ErrEmptyIdentity
	}
	if len(kinds) == 0 {
		return nil, ErrNoKinds
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}

	for _, k := range kinds {
		if !events.IsResponse(k) {
			continue
		}
		if _, taken := b.routes[routeKey{identity, k}]; taken {
			return nil, fmt.Errorf("%w: %s for %s", ErrDuplicateResponseRoute, k, identity)
		}
	}

	b.nextID++
	s := &Subscription{
		bus:      b,
		id:       b.nextID,
		identity: identity,
		kinds:    append([]events.Kind(nil), kinds...),
		affinity: affinity,
		handler:  handler,
		lanes:    make(map[guard.SenderID]*lane),
	}
	for _, k := range s.kinds {
		if events.IsResponse(k) {
			b.routes[routeKey{identity, k}] = s
			continue
		}
		b.byKind[k] = append(b.byKind[k], s)
	}
	b.log.Debug("bus: subscribed", "identity", identity, "kinds", len(kinds), "affinity", affinity.String())
	return s, nil
}

func (b *Bus) unsubscribe(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, k := range s.kinds {
		if events.IsResponse(k) {
			key := routeKey{s.identity, k}
			if b.routes[key] == s {
				delete(b.routes, key)
			}
			continue
		}
		subs := b.byKind[k]
		for i, other := range subs {
			if other == s {
				b.byKind[k] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
		if len(b.byKind[k]) == 0 {
			delete(b.byKind, k)
		}
	}
}

// Publish queues msg for every interested subscription and returns at once.
// With no interested subscription, or after Close, it does nothing.
func (b *Bus) Publish(msg events.Message) {
	kind := msg.Kind()
	env := msg.Envelope()

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	if events.IsRequest(kind) && !env.Sender.IsZero() {
		if !b.guard.Track(env.Sender, uint64(env.ID)) {
			b.log.Debug("bus: request from stale sender", "kind", kind, "request", env.ID)
		}
	}

	if events.IsResponse(kind) {
		s := b.routes[routeKey{env.Sender.ID, kind}]
		if s == nil {
			b.guard.Settle(env.Sender, uint64(env.ID))
			b.log.Debug("bus: no route for response", "kind", kind, "request", env.ID)
			return
		}
		b.enqueue(s, msg)
		return
	}

	for _, s := range b.byKind[kind] {
		b.enqueue(s, msg)
	}
}

// enqueue runs with b.mu read-locked.
func (b *Bus) enqueue(s *Subscription, msg events.Message) {
	if s.affinity == ForegroundOnly {
		b.foreground.Push(delivery{sub: s, msg: msg})
		return
	}
	s.pushLane(msg)
}

// dispatch runs a handler for one delivery, dropping responses the guard does not settle.
func (b *Bus) dispatch(s *Subscription, msg events.Message) {
	if events.IsResponse(msg.Kind()) {
		// settle even when skipped, or the sender keeps a pending entry forever
		env := msg.Envelope()
		settled := b.guard.Settle(env.Sender, uint64(env.ID))
		if s.closed.Load() {
			return
		}
		if !settled {
			b.log.Debug("bus: dropped response for gone sender", "kind", msg.Kind(), "request", env.ID)
			return
		}
	} else if s.closed.Load() {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			b.log.Error("bus: handler panicked", "kind", msg.Kind(), "identity", s.identity, "panic", fmt.Sprint(r))
		}
	}()
	s.handler(msg)
}

// Close stops accepting messages, ends the Loop and waits for running lanes.
// Do not call it from an AnyThread handler.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	dropped := b.foreground.Drain()
	for _, d := range dropped {
		if events.IsResponse(d.msg.Kind()) {
			env := d.msg.Envelope()
			b.guard.Settle(env.Sender, uint64(env.ID))
		}
	}
	if len(dropped) > 0 {
		b.log.Debug("bus: closed with undelivered foreground messages", "count", len(dropped))
	}
	b.lanes.Wait()
}

// Subscription is a registered handler.
type Subscription struct {
	bus      *Bus
	id       uint64
	identity guard.SenderID
	kinds    []events.Kind
	affinity Affinity
	handler  Handler
	closed   atomic.Bool
	active   sync.WaitGroup

	mu    sync.Mutex
	lanes map[guard.SenderID]*lane
}

type lane struct {
	queue   []events.Message
	running bool
}

func (s *Subscription) Identity() guard.SenderID { return s.identity }

// Close unsubscribes. Messages already queued for s are skipped.
func (s *Subscription) Close() {
	if s.closed.Swap(true) {
		return
	}
	s.bus.unsubscribe(s)
}

// Drain unsubscribes like Close, but an AnyThread subscription still
// delivers what is already queued on its lanes. It returns once those
// deliveries ran or ctx ends. A ForegroundOnly subscription is just closed.
// Do not call it from one of s's own handlers.
func (s *Subscription) Drain(ctx context.Context) error {
	if s.affinity == ForegroundOnly {
		s.Close()
		return nil
	}
	if s.closed.Load() {
		return nil
	}
	// after unsubscribe nothing new reaches pushLane, so active only shrinks
	s.bus.unsubscribe(s)

	idle := make(chan struct{})
	go func() {
		s.active.Wait()
		close(idle)
	}()
	defer s.closed.Store(true)
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// pushLane runs with s.bus.mu read-locked, so the WaitGroup never grows after Close.
func (s *Subscription) pushLane(msg events.Message) {
	key := msg.Envelope().Sender.ID

	s.mu.Lock()
	l := s.lanes[key]
	if l == nil {
		l = &lane{}
		s.lanes[key] = l
	}
	l.queue = append(l.queue, msg)
	start := !l.running
	l.running = true
	s.mu.Unlock()

	if start {
		s.bus.lanes.Add(1)
		s.active.Add(1)
		go s.runLane(key, l)
	}
}

func (s *Subscription) runLane(key guard.SenderID, l *lane) {
	defer s.bus.lanes.Done()
	defer s.active.Done()
	for {
		s.mu.Lock()
		if len(l.queue) == 0 {
			l.running = false
			delete(s.lanes, key)
			s.mu.Unlock()
			return
		}
		msg := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		s.mu.Unlock()

		s.bus.dispatch(s, msg)
	}
}
