// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package bus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"seedfast/docshell/internal/events"
	"seedfast/docshell/internal/guard"
)

func newTestBus(t *testing.T) *Bus {
	t.Helper()
	b := New(guard.New())
	t.Cleanup(b.Close)
	return b
}

func respond(req events.LoadDatabaseNamesRequest, names ...string) events.LoadDatabaseNamesResponse {
	return events.NewLoadDatabaseNamesResponse(req, events.Ok(names))
}

func TestForeground_DeliversInPublishOrder(t *testing.T) {
	b := newTestBus(t)
	var got []string
	_, err := b.Subscribe("view", []events.Kind{events.KindSomethingHappened}, ForegroundOnly, func(m events.Message) {
		got = append(got, m.(events.SomethingHappened).Text)
	})
	if err != nil {
		t.Fatal(err)
	}

	for _, s := range []string{"a", "b", "c"} {
		b.Publish(events.NewSomethingHappened(events.Envelope{}, s))
	}
	if len(got) != 0 {
		t.Fatal("foreground handler ran before the loop was driven")
	}
	if n := b.Loop().Drain(); n != 3 {
		t.Fatalf("Drain() = %d, want 3", n)
	}
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("order = %v", got)
	}
}

func TestPublish_NoSubscriberIsNoop(t *testing.T) {
	b := newTestBus(t)
	b.Publish(events.NewSomethingHappened(events.Envelope{}, "nobody listens"))
	if n := b.Loop().Drain(); n != 0 {
		t.Fatalf("Drain() = %d", n)
	}
}

func TestResponse_RoutedToSenderOnly(t *testing.T) {
	b := newTestBus(t)
	alice := b.Guard().NewSender()
	bob := b.Guard().NewSender()

	var aliceGot, bobGot int
	kinds := []events.Kind{events.KindLoadDatabaseNamesResponse}
	if _, err := b.Subscribe(alice.ID(), kinds, ForegroundOnly, func(events.Message) { aliceGot++ }); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Subscribe(bob.ID(), kinds, ForegroundOnly, func(events.Message) { bobGot++ }); err != nil {
		t.Fatal(err)
	}

	req := events.NewLoadDatabaseNamesRequest(alice.Token(), "shell")
	b.Publish(req)
	b.Publish(respond(req, "admin"))
	b.Loop().Drain()

	if aliceGot != 1 || bobGot != 0 {
		t.Fatalf("alice=%d bob=%d, want 1 and 0", aliceGot, bobGot)
	}
}

func TestResponse_DeliveredAtMostOnce(t *testing.T) {
	b := newTestBus(t)
	s := b.Guard().NewSender()
	calls := 0
	if _, err := b.Subscribe(s.ID(), []events.Kind{events.KindLoadDatabaseNamesResponse}, ForegroundOnly, func(events.Message) { calls++ }); err != nil {
		t.Fatal(err)
	}

	req := events.NewLoadDatabaseNamesRequest(s.Token(), "shell")
	b.Publish(req)
	resp := respond(req)
	b.Publish(resp)
	b.Publish(resp)
	b.Loop().Drain()

	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1", calls)
	}
}

func TestResponse_DroppedWhenSenderClosed(t *testing.T) {
	b := newTestBus(t)
	s := b.Guard().NewSender()
	calls := 0
	if _, err := b.Subscribe(s.ID(), []events.Kind{events.KindLoadDatabaseNamesResponse}, ForegroundOnly, func(events.Message) { calls++ }); err != nil {
		t.Fatal(err)
	}

	req := events.NewLoadDatabaseNamesRequest(s.Token(), "shell")
	b.Publish(req)
	b.Publish(respond(req))
	// closed after the response was queued but before the loop delivers it
	s.Close()
	b.Loop().Drain()

	if calls != 0 {
		t.Fatalf("handler ran %d times for a closed sender", calls)
	}
}

func TestResponse_DroppedAfterInvalidate(t *testing.T) {
	b := newTestBus(t)
	s := b.Guard().NewSender()
	var got []events.RequestID
	if _, err := b.Subscribe(s.ID(), []events.Kind{events.KindLoadDatabaseNamesResponse}, ForegroundOnly, func(m events.Message) {
		got = append(got, m.Envelope().ID)
	}); err != nil {
		t.Fatal(err)
	}

	stale := events.NewLoadDatabaseNamesRequest(s.Token(), "shell")
	b.Publish(stale)
	s.Invalidate()
	fresh := events.NewLoadDatabaseNamesRequest(s.Token(), "shell")
	b.Publish(fresh)

	b.Publish(respond(stale))
	b.Publish(respond(fresh))
	b.Loop().Drain()

	if len(got) != 1 || got[0] != fresh.Env.ID {
		t.Fatalf("delivered %v, want only %d", got, fresh.Env.ID)
	}
}

func TestSubscribe_Validation(t *testing.T) {
	b := newTestBus(t)
	noop := func(events.Message) {}
	kinds := []events.Kind{events.KindInitResponse}

	if _, err := b.Subscribe("", kinds, ForegroundOnly, noop); !errors.Is(err, ErrEmptyIdentity) {
		t.Errorf("empty identity: %v", err)
	}
	if _, err := b.Subscribe("x", nil, ForegroundOnly, noop); !errors.Is(err, ErrNoKinds) {
		t.Errorf("no kinds: %v", err)
	}
	if _, err := b.Subscribe("x", kinds, ForegroundOnly, noop); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Subscribe("x", kinds, AnyThread, noop); !errors.Is(err, ErrDuplicateResponseRoute) {
		t.Errorf("duplicate route: %v", err)
	}
	// notifications and requests may be subscribed to any number of times
	n := []events.Kind{events.KindConnecting}
	if _, err := b.Subscribe("x", n, ForegroundOnly, noop); err != nil {
		t.Error(err)
	}
	if _, err := b.Subscribe("x", n, ForegroundOnly, noop); err != nil {
		t.Error(err)
	}
}

func TestSubscription_CloseSkipsQueued(t *testing.T) {
	b := newTestBus(t)
	calls := 0
	sub, err := b.Subscribe("view", []events.Kind{events.KindSomethingHappened}, ForegroundOnly, func(events.Message) { calls++ })
	if err != nil {
		t.Fatal(err)
	}
	b.Publish(events.NewSomethingHappened(events.Envelope{}, "queued"))
	sub.Close()
	b.Publish(events.NewSomethingHappened(events.Envelope{}, "after"))
	b.Loop().Drain()
	if calls != 0 {
		t.Fatalf("closed subscription ran %d times", calls)
	}

	// the route is free again
	s := b.Guard().NewSender()
	kinds := []events.Kind{events.KindInitResponse}
	first, _ := b.Subscribe(s.ID(), kinds, ForegroundOnly, func(events.Message) {})
	first.Close()
	if _, err := b.Subscribe(s.ID(), kinds, ForegroundOnly, func(events.Message) {}); err != nil {
		t.Fatalf("resubscribe after Close: %v", err)
	}
}

func TestSubscription_CloseSettlesSkippedResponse(t *testing.T) {
	b := newTestBus(t)
	s := b.Guard().NewSender()
	calls := 0
	sub, err := b.Subscribe(s.ID(), []events.Kind{events.KindLoadDatabaseNamesResponse}, ForegroundOnly, func(events.Message) { calls++ })
	if err != nil {
		t.Fatal(err)
	}

	req := events.NewLoadDatabaseNamesRequest(s.Token(), "shell")
	b.Publish(req)
	b.Publish(respond(req, "admin"))
	if got := b.Guard().Pending(s.ID()); got != 1 {
		t.Fatalf("Pending = %d before delivery, want 1", got)
	}
	sub.Close()
	b.Loop().Drain()

	if calls != 0 {
		t.Fatalf("closed subscription ran %d times", calls)
	}
	if got := b.Guard().Pending(s.ID()); got != 0 {
		t.Fatalf("Pending = %d after skipped response, want 0", got)
	}
}

func TestBusClose_SettlesUndeliveredResponses(t *testing.T) {
	b := New(guard.New())
	s := b.Guard().NewSender()
	if _, err := b.Subscribe(s.ID(), []events.Kind{events.KindLoadDatabaseNamesResponse}, ForegroundOnly, func(events.Message) {}); err != nil {
		t.Fatal(err)
	}
	req := events.NewLoadDatabaseNamesRequest(s.Token(), "shell")
	b.Publish(req)
	b.Publish(respond(req))
	b.Close()
	if got := b.Guard().Pending(s.ID()); got != 0 {
		t.Fatalf("Pending = %d after Close, want 0", got)
	}
}

func TestSubscription_DrainDeliversQueued(t *testing.T) {
	b := newTestBus(t)
	gate := make(chan struct{})
	var mu sync.Mutex
	var got []string
	sub, err := b.Subscribe("worker", []events.Kind{events.KindSomethingHappened}, AnyThread, func(m events.Message) {
		<-gate
		mu.Lock()
		got = append(got, m.(events.SomethingHappened).Text)
		mu.Unlock()
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, text := range []string{"a", "b", "c"} {
		b.Publish(events.NewSomethingHappened(events.Envelope{}, text))
	}

	drained := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		drained <- sub.Drain(ctx)
	}()

	select {
	case err := <-drained:
		t.Fatalf("Drain returned %v while deliveries were blocked", err)
	case <-time.After(20 * time.Millisecond):
	}
	close(gate)
	if err := <-drained; err != nil {
		t.Fatalf("Drain: %v", err)
	}

	b.Publish(events.NewSomethingHappened(events.Envelope{}, "after"))
	time.Sleep(10 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Fatalf("delivered %v, want [a b c]", got)
	}
}

func TestSubscription_DrainHonoursContext(t *testing.T) {
	b := newTestBus(t)
	gate := make(chan struct{})
	defer close(gate)
	sub, err := b.Subscribe("worker", []events.Kind{events.KindSomethingHappened}, AnyThread, func(events.Message) { <-gate })
	if err != nil {
		t.Fatal(err)
	}
	b.Publish(events.NewSomethingHappened(events.Envelope{}, "stuck"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := sub.Drain(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Drain = %v, want deadline exceeded", err)
	}
}

func TestAnyThread_PerSenderFIFOAndIndependentLanes(t *testing.T) {
	b := newTestBus(t)
	slow := b.Guard().NewSender()
	fast := b.Guard().NewSender()

	gate := make(chan struct{})
	var mu sync.Mutex
	order := map[guard.SenderID][]events.RequestID{}
	fastDone := make(chan struct{})

	_, err := b.Subscribe("worker", []events.Kind{events.KindLoadDatabaseNamesRequest}, AnyThread, func(m events.Message) {
		env := m.Envelope()
		if env.Sender.ID == slow.ID() {
			<-gate
		}
		mu.Lock()
		order[env.Sender.ID] = append(order[env.Sender.ID], env.ID)
		n := len(order[fast.ID()])
		mu.Unlock()
		if env.Sender.ID == fast.ID() && n == 3 {
			close(fastDone)
		}
	})
	if err != nil {
		t.Fatal(err)
	}

	var slowIDs, fastIDs []events.RequestID
	for i := 0; i < 3; i++ {
		r := events.NewLoadDatabaseNamesRequest(slow.Token(), "a")
		slowIDs = append(slowIDs, r.Env.ID)
		b.Publish(r)
		f := events.NewLoadDatabaseNamesRequest(fast.Token(), "b")
		fastIDs = append(fastIDs, f.Env.ID)
		b.Publish(f)
	}

	select {
	case <-fastDone:
	case <-time.After(2 * time.Second):
		t.Fatal("fast sender blocked behind slow sender")
	}
	close(gate)
	b.Close()

	mu.Lock()
	defer mu.Unlock()
	for sender, want := range map[guard.SenderID][]events.RequestID{slow.ID(): slowIDs, fast.ID(): fastIDs} {
		got := order[sender]
		if len(got) != len(want) {
			t.Fatalf("sender %s: %v, want %v", sender, got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("sender %s out of order: %v, want %v", sender, got, want)
			}
		}
	}
}

func TestLoop_RunUntilAndClose(t *testing.T) {
	b := New(guard.New())
	done := make(chan struct{})
	var handled int
	if _, err := b.Subscribe("view", []events.Kind{events.KindSomethingHappened}, ForegroundOnly, func(events.Message) {
		handled++
		close(done)
	}); err != nil {
		t.Fatal(err)
	}

	go b.Publish(events.NewSomethingHappened(events.Envelope{}, "wake"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := b.Loop().RunUntil(ctx, done); err != nil {
		t.Fatalf("RunUntil() = %v", err)
	}
	if handled != 1 {
		t.Fatalf("handled = %d", handled)
	}

	errc := make(chan error, 1)
	go func() { errc <- b.Loop().Run(context.Background()) }()
	time.Sleep(10 * time.Millisecond)
	b.Close()
	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("Run() after Close = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}

	b.Publish(events.NewSomethingHappened(events.Envelope{}, "ignored"))
	if _, err := b.Subscribe("late", []events.Kind{events.KindConnecting}, ForegroundOnly, func(events.Message) {}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Subscribe after Close = %v", err)
	}
}

func TestLoop_SingleDriver(t *testing.T) {
	b := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- b.Loop().Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for !b.Loop().running.Load() {
		if time.Now().After(deadline) {
			t.Fatal("loop never started")
		}
		time.Sleep(time.Millisecond)
	}
	if err := b.Loop().Run(context.Background()); !errors.Is(err, ErrLoopBusy) {
		t.Fatalf("second Run() = %v, want ErrLoopBusy", err)
	}
	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() = %v, want context.Canceled", err)
	}
}

func TestHandlerPanicDoesNotStopLoop(t *testing.T) {
	b := newTestBus(t)
	calls := 0
	if _, err := b.Subscribe("view", []events.Kind{events.KindSomethingHappened}, ForegroundOnly, func(m events.Message) {
		calls++
		if m.(events.SomethingHappened).Text == "boom" {
			panic("handler bug")
		}
	}); err != nil {
		t.Fatal(err)
	}
	b.Publish(events.NewSomethingHappened(events.Envelope{}, "boom"))
	b.Publish(events.NewSomethingHappened(events.Envelope{}, "fine"))
	if n := b.Loop().Drain(); n != 2 || calls != 2 {
		t.Fatalf("Drain() = %d, calls = %d", n, calls)
	}
}
