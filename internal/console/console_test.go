// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package console

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"seedfast/docshell/internal/backend"
	"seedfast/docshell/internal/backend/backendtest"
	"seedfast/docshell/internal/domain"
	"seedfast/docshell/internal/errors"
	"seedfast/docshell/internal/events"
)

const waitTimeout = 3 * time.Second

func newConsole(t *testing.T, client *backendtest.Client) *Console {
	t.Helper()
	c, err := New(Options{Factory: client.Factory()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
		defer cancel()
		if err := c.Close(ctx); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return c
}

type notes struct {
	mu   sync.Mutex
	msgs []events.Message
}

func (n *notes) add(m events.Message) {
	n.mu.Lock()
	n.msgs = append(n.msgs, m)
	n.mu.Unlock()
}

func (n *notes) kinds() []events.Kind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]events.Kind, len(n.msgs))
	for i, m := range n.msgs {
		out[i] = m.Kind()
	}
	return out
}

func contains(kinds []events.Kind, k events.Kind) bool {
	for _, got := range kinds {
		if got == k {
			return true
		}
	}
	return false
}

func call(t *testing.T, s *Session, req events.Request) events.Response {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	resp, err := s.Call(ctx, req)
	if err != nil {
		t.Fatalf("Call(%s): %v", req.Kind(), err)
	}
	return resp
}

func TestNewRequiresFactory(t *testing.T) {
	if _, err := New(Options{}); !stderrors.Is(err, ErrNoFactory) {
		t.Fatalf("New() error = %v, want ErrNoFactory", err)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	client := backendtest.New()
	client.Databases = []string{"admin", "shop"}
	client.Documents["shop.users"] = []backend.Document{
		backendtest.Doc(bson.D{{Key: "_id", Value: 1}}),
		backendtest.Doc(bson.D{{Key: "_id", Value: 2}}),
	}
	c := newConsole(t, client)

	var seen notes
	s, err := c.NewSession(seen.add)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	srv := c.AddServer("local", "mongodb://localhost:27017")
	sh, err := c.OpenShell(srv.ID, "shop", "")
	if err != nil {
		t.Fatalf("OpenShell: %v", err)
	}

	resp := call(t, s, events.NewEstablishConnectionRequest(s.Token(), sh.ID, "admin", "app", "secret"))
	est := resp.(events.EstablishConnectionResponse)
	if addr, ok := est.Value(); !ok || addr != "fake:27017" {
		t.Fatalf("EstablishConnection = %q, %v (%v)", addr, ok, est.Err())
	}
	kinds := seen.kinds()
	if !contains(kinds, events.KindOpeningShell) || !contains(kinds, events.KindConnecting) {
		t.Errorf("notifications = %v", kinds)
	}

	dbs := call(t, s, events.NewLoadDatabaseNamesRequest(s.Token(), sh.ID)).(events.LoadDatabaseNamesResponse)
	if names, _ := dbs.Value(); len(names) != 2 {
		t.Errorf("databases = %v", names)
	}

	q := call(t, s, events.NewExecuteQueryRequest(s.Token(), sh.ID, "shop.users", 1, 1)).(events.ExecuteQueryResponse)
	docs, ok := q.Value()
	if !ok || len(docs) != 1 || docs[0].Lookup("_id").AsInt64() != 2 {
		t.Errorf("query page = %v, %v", docs, q.Err())
	}
	if s.InFlight() != 0 {
		t.Errorf("InFlight() = %d after all responses", s.InFlight())
	}
}

func TestCallTimeoutDropsLateResponse(t *testing.T) {
	client := backendtest.New()
	release := client.Hold(backendtest.Find)
	defer release()

	c := newConsole(t, client)
	var late []events.Response
	s, err := c.NewSession(nil, OnResponse(func(r events.Response) { late = append(late, r) }))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	sh, err := c.OpenShell(c.AddServer("local", "mongodb://localhost").ID, "", "")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = s.Call(ctx, events.NewExecuteQueryRequest(s.Token(), sh.ID, "shop.users", 0, 0))
	if !stderrors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Call() error = %v, want deadline exceeded", err)
	}
	if s.InFlight() != 0 {
		t.Errorf("InFlight() = %d after invalidation", s.InFlight())
	}

	release()
	deadline := time.Now().Add(waitTimeout)
	for c.Loop().Pending() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("late response never reached the foreground queue")
		}
		time.Sleep(5 * time.Millisecond)
	}
	c.Loop().Drain()
	if len(late) != 0 {
		t.Errorf("late response delivered: %v", late)
	}

	// the session keeps working with its new generation
	resp := call(t, s, events.NewLoadDatabaseNamesRequest(s.Token(), sh.ID))
	if resp.Failed() {
		t.Errorf("request after timeout failed: %v", resp.Err())
	}
}

func TestCallWhileLoopRunsElsewhere(t *testing.T) {
	client := backendtest.New()
	client.Databases = []string{"shop"}
	c := newConsole(t, client)
	s, err := c.NewSession(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	sh, err := c.OpenShell(c.AddServer("local", "mongodb://localhost").ID, "", "")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		_ = c.Loop().Run(ctx)
	}()

	resp := call(t, s, events.NewLoadDatabaseNamesRequest(s.Token(), sh.ID))
	if resp.Failed() {
		t.Fatalf("response failed: %v", resp.Err())
	}
	cancel()
	<-loopDone
}

func TestCallFromForegroundHandlerFailsFast(t *testing.T) {
	client := backendtest.New()
	client.Databases = []string{"shop"}
	client.Collections["shop"] = []string{"users"}
	c := newConsole(t, client)

	var late []events.Response
	inner, err := c.NewSession(nil, OnResponse(func(r events.Response) { late = append(late, r) }))
	if err != nil {
		t.Fatal(err)
	}
	defer inner.Close()

	sh, err := c.OpenShell(c.AddServer("local", "mongodb://localhost").ID, "shop", "")
	if err != nil {
		t.Fatal(err)
	}

	var (
		innerErr error
		elapsed  time.Duration
	)
	outer, err := c.NewSession(func(m events.Message) {
		if _, ok := m.(events.DatabaseListLoaded); !ok {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
		defer cancel()
		start := time.Now()
		_, innerErr = inner.Call(ctx, events.NewLoadCollectionNamesRequest(inner.Token(), sh.ID, "shop"))
		elapsed = time.Since(start)
		inner.Send(events.NewLoadCollectionNamesRequest(inner.Token(), sh.ID, "shop"))
	})
	if err != nil {
		t.Fatal(err)
	}
	defer outer.Close()

	resp := call(t, outer, events.NewLoadDatabaseNamesRequest(outer.Token(), sh.ID))
	if resp.Failed() {
		t.Fatalf("outer response failed: %v", resp.Err())
	}
	if !stderrors.Is(innerErr, ErrReentrantCall) {
		t.Fatalf("nested Call error = %v, want ErrReentrantCall", innerErr)
	}
	if elapsed > 100*time.Millisecond {
		t.Errorf("nested Call took %v, want an immediate failure", elapsed)
	}

	// the Send issued from the handler is answered once the loop runs again
	deadline := time.Now().Add(waitTimeout)
	for len(late) == 0 && time.Now().Before(deadline) {
		c.Loop().Drain()
		time.Sleep(time.Millisecond)
	}
	if len(late) != 1 || late[0].Failed() {
		t.Fatalf("responses to Send = %v", late)
	}
	if inner.InFlight() != 0 {
		t.Errorf("InFlight() = %d, want 0", inner.InFlight())
	}
}

func TestClosedShellAnswersInvalidArgument(t *testing.T) {
	client := backendtest.New()
	c := newConsole(t, client)
	s, err := c.NewSession(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	sh, err := c.OpenShell(c.AddServer("local", "mongodb://localhost").ID, "", "")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	if err := c.CloseShell(ctx, sh.ID); err != nil {
		t.Fatalf("CloseShell: %v", err)
	}
	if !client.Closed() {
		t.Error("backend client not closed")
	}
	if _, ok := c.Arena().Shell(sh.ID); ok {
		t.Error("shell still recorded")
	}

	resp := call(t, s, events.NewInitRequest(s.Token(), sh.ID))
	if e, failed := events.Failure(resp); !failed || e.Kind != errors.InvalidArgument {
		t.Errorf("response to closed shell = %v, %v", e, failed)
	}
}

func TestOpenShellUnknownServer(t *testing.T) {
	c := newConsole(t, backendtest.New())
	if _, err := c.OpenShell(domain.ServerID("nope"), "", ""); !stderrors.Is(err, domain.ErrUnknownServer) {
		t.Fatalf("OpenShell() error = %v", err)
	}
	if c.Pool().Len() != 0 {
		t.Error("executor started for unknown server")
	}
}

func TestOpenShellFactoryError(t *testing.T) {
	boom := stderrors.New("no driver")
	c, err := New(Options{Factory: func(domain.Server) (backend.Client, error) { return nil, boom }})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close(context.Background())

	srv := c.AddServer("local", "mongodb://localhost")
	if _, err := c.OpenShell(srv.ID, "", ""); !stderrors.Is(err, boom) {
		t.Fatalf("OpenShell() error = %v", err)
	}
	if len(c.Arena().Shells(srv.ID)) != 0 {
		t.Error("shell recorded although its client could not be built")
	}
}

func TestRemoveServerClosesShells(t *testing.T) {
	client := backendtest.New()
	c := newConsole(t, client)
	srv := c.AddServer("local", "mongodb://localhost")
	if _, err := c.OpenShell(srv.ID, "", ""); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	if err := c.RemoveServer(ctx, srv.ID); err != nil {
		t.Fatalf("RemoveServer: %v", err)
	}
	if c.Pool().Len() != 0 {
		t.Errorf("%d executors still running", c.Pool().Len())
	}
	if _, ok := c.Arena().Server(srv.ID); ok {
		t.Error("server still recorded")
	}
}
