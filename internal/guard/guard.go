// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package guard ties responses to the live sender that issued the request.
//
// A Sender is owned by the issuing side (a view, a command). Requests carry a
// Token, which is an identity plus the sender's generation at the time the
// request was built. The token is a plain value and keeps nothing alive.
// Before a response handler runs, the bus settles the response against the
// guard: it is delivered only when the sender still exists, its generation is
// unchanged and the request has not been answered before.
package guard

import (
	"sync"

	"github.com/google/uuid"
)

// SenderID identifies a sender for routing.
type SenderID string

// Token is the non-owning identity captured into a request.
type Token struct {
	ID         SenderID
	Generation uint64
}

// IsZero reports whether t was never issued by a guard.
func (t Token) IsZero() bool { return t.ID == "" }

type senderState struct {
	generation uint64
	// request id -> generation it was issued under
	pending map[uint64]uint64
}

// Guard tracks live senders and their in-flight requests.
type Guard struct {
	mu      sync.Mutex
	senders map[SenderID]*senderState
}

func New() *Guard {
	return &Guard{senders: make(map[SenderID]*senderState)}
}

// Sender is the issuing side's handle. Close it when the issuer goes away.
type Sender struct {
	g  *Guard
	id SenderID
}

// NewSender registers a live sender.
func (g *Guard) NewSender() *Sender {
	id := SenderID(uuid.NewString())
	g.mu.Lock()
	g.senders[id] = &senderState{pending: make(map[uint64]uint64)}
	g.mu.Unlock()
	return &Sender{g: g, id: id}
}

func (s *Sender) ID() SenderID { return s.id }

// Token returns the sender's current identity. Zero after Close.
func (s *Sender) Token() Token {
	s.g.mu.Lock()
	defer s.g.mu.Unlock()
	st, ok := s.g.senders[s.id]
	if !ok {
		return Token{}
	}
	return Token{ID: s.id, Generation: st.generation}
}

// Invalidate bumps the generation. Responses to requests built with an older
// token will be dropped; the sender itself stays alive.
func (s *Sender) Invalidate() {
	s.g.mu.Lock()
	defer s.g.mu.Unlock()
	if st, ok := s.g.senders[s.id]; ok {
		st.generation++
		clear(st.pending)
	}
}

// Close destroys the sender and forgets its pending requests.
func (s *Sender) Close() {
	s.g.mu.Lock()
	delete(s.g.senders, s.id)
	s.g.mu.Unlock()
}

// Alive reports whether the sender has not been closed.
func (s *Sender) Alive() bool {
	return s.g.Alive(s.id)
}

func (g *Guard) Alive(id SenderID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.senders[id]
	return ok
}

// Track records an in-flight request. It returns false when the token is
// stale, in which case nothing is recorded.
func (g *Guard) Track(t Token, requestID uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	st, ok := g.senders[t.ID]
	if !ok || st.generation != t.Generation {
		return false
	}
	st.pending[requestID] = t.Generation
	return true
}

// Settle consumes a tracked request. It returns true exactly once per tracked
// request and only while the sender is alive at the token's generation.
func (g *Guard) Settle(t Token, requestID uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	st, ok := g.senders[t.ID]
	if !ok || st.generation != t.Generation {
		return false
	}
	gen, ok := st.pending[requestID]
	if !ok || gen != t.Generation {
		return false
	}
	delete(st.pending, requestID)
	return true
}

// Pending returns the number of unanswered requests for a sender.
func (g *Guard) Pending(id SenderID) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if st, ok := g.senders[id]; ok {
		return len(st.pending)
	}
	return 0
}
