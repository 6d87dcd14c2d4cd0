// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"seedfast/docshell/internal/backend/backendtest"
	"seedfast/docshell/internal/bus"
	"seedfast/docshell/internal/domain"
	"seedfast/docshell/internal/events"
	"seedfast/docshell/internal/guard"
)

const waitTimeout = 3 * time.Second

type harness struct {
	bus    *bus.Bus
	arena  *domain.Arena
	pool   *Pool
	server domain.Server
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	b := bus.New(guard.New())
	arena := domain.NewArena()
	pool, err := NewPool(b, arena, opts)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	h := &harness{
		bus:    b,
		arena:  arena,
		pool:   pool,
		server: arena.AddServer("local", "mongodb://localhost:27017"),
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
		defer cancel()
		if err := pool.Shutdown(ctx); err != nil {
			t.Errorf("Shutdown: %v", err)
		}
		b.Close()
	})
	return h
}

func (h *harness) openShell(t *testing.T, client *backendtest.Client) domain.ShellID {
	t.Helper()
	sh, err := h.arena.AddShell(h.server.ID, "test", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := h.pool.Open(sh.ID, client); err != nil {
		t.Fatalf("Open: %v", err)
	}
	return sh.ID
}

// recorder collects the messages delivered to one subscription on the foreground.
type recorder struct {
	mu   sync.Mutex
	msgs []events.Message
}

func (r *recorder) add(m events.Message) {
	r.mu.Lock()
	r.msgs = append(r.msgs, m)
	r.mu.Unlock()
}

func (r *recorder) all() []events.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Message(nil), r.msgs...)
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func (r *recorder) ofKind(k events.Kind) []events.Message {
	var out []events.Message
	for _, m := range r.all() {
		if m.Kind() == k {
			out = append(out, m)
		}
	}
	return out
}

// newSender registers a sender whose responses are recorded.
func (h *harness) newSender(t *testing.T) (*guard.Sender, *recorder) {
	t.Helper()
	s := h.bus.Guard().NewSender()
	rec := &recorder{}
	if _, err := h.bus.Subscribe(s.ID(), events.ResponseKinds(), bus.ForegroundOnly, rec.add); err != nil {
		t.Fatal(err)
	}
	return s, rec
}

func (h *harness) observeNotifications(t *testing.T) *recorder {
	t.Helper()
	rec := &recorder{}
	if _, err := h.bus.Subscribe("observer", events.NotificationKinds(), bus.ForegroundOnly, rec.add); err != nil {
		t.Fatal(err)
	}
	return rec
}

// waitFor drives the foreground loop from the test goroutine until cond holds.
func (h *harness) waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for {
		h.bus.Loop().Drain()
		if cond() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func waitEntered(t *testing.T, c *backendtest.Client, method string) {
	t.Helper()
	timer := time.NewTimer(waitTimeout)
	defer timer.Stop()
	for {
		select {
		case m := <-c.Entered():
			if m == method {
				return
			}
		case <-timer.C:
			t.Fatalf("backend call %s never started", method)
		}
	}
}
