// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package guard

import "testing"

func TestSettle_ExactlyOnce(t *testing.T) {
	g := New()
	s := g.NewSender()
	tok := s.Token()

	if !g.Track(tok, 1) {
		t.Fatal("Track() = false for live sender")
	}
	if got := g.Pending(s.ID()); got != 1 {
		t.Fatalf("Pending() = %d, want 1", got)
	}
	if !g.Settle(tok, 1) {
		t.Fatal("first Settle() = false, want true")
	}
	if g.Settle(tok, 1) {
		t.Fatal("second Settle() = true, want false")
	}
	if got := g.Pending(s.ID()); got != 0 {
		t.Fatalf("Pending() = %d, want 0", got)
	}
}

func TestSettle_UntrackedRequest(t *testing.T) {
	g := New()
	s := g.NewSender()
	if g.Settle(s.Token(), 42) {
		t.Fatal("Settle() of untracked request = true")
	}
}

func TestSettle_AfterClose(t *testing.T) {
	g := New()
	s := g.NewSender()
	tok := s.Token()
	g.Track(tok, 7)

	s.Close()

	if s.Alive() {
		t.Fatal("Alive() = true after Close")
	}
	if g.Settle(tok, 7) {
		t.Fatal("Settle() = true after sender closed")
	}
	if !s.Token().IsZero() {
		t.Fatal("Token() after Close should be zero")
	}
	if g.Track(tok, 8) {
		t.Fatal("Track() = true after sender closed")
	}
}

func TestInvalidate(t *testing.T) {
	g := New()
	s := g.NewSender()
	old := s.Token()
	g.Track(old, 1)

	s.Invalidate()

	if g.Settle(old, 1) {
		t.Fatal("Settle() with stale generation = true")
	}
	fresh := s.Token()
	if fresh.Generation == old.Generation {
		t.Fatalf("generation not bumped: %d", fresh.Generation)
	}
	if !g.Track(fresh, 2) || !g.Settle(fresh, 2) {
		t.Fatal("fresh token should track and settle")
	}
	if !s.Alive() {
		t.Fatal("Invalidate must not destroy the sender")
	}
}

func TestSendersAreIndependent(t *testing.T) {
	g := New()
	a, b := g.NewSender(), g.NewSender()
	if a.ID() == b.ID() {
		t.Fatal("senders share an id")
	}
	g.Track(a.Token(), 1)
	g.Track(b.Token(), 1)

	a.Close()

	if !g.Settle(b.Token(), 1) {
		t.Fatal("closing a must not affect b")
	}
}
