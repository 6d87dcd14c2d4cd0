// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package explorer

import (
	"fmt"
	"testing"

	"seedfast/docshell/internal/backend"
	"seedfast/docshell/internal/domain"
	"seedfast/docshell/internal/errors"
	"seedfast/docshell/internal/events"
	"seedfast/docshell/internal/guard"
)

func setup(t *testing.T) (*Explorer, *domain.Arena, domain.Server, domain.Shell) {
	t.Helper()
	arena := domain.NewArena()
	srv := arena.AddServer("local", "mongodb://localhost")
	sh, err := arena.AddShell(srv.ID, "shop", "")
	if err != nil {
		t.Fatal(err)
	}
	return New(arena), arena, srv, sh
}

func TestConnectionLifecycle(t *testing.T) {
	x, _, srv, sh := setup(t)
	env := events.Envelope{Shell: sh.ID}

	x.Apply(events.NewOpeningShell(env, srv.ID, "db.stats()"))
	x.Apply(events.NewConnecting(env, srv.ID))
	if s, _ := x.Server(srv.ID); s.State != Connecting {
		t.Fatalf("state = %v, want connecting", s.State)
	}

	x.Apply(events.NewConnectionFailed(env, srv.ID, "authentication failed"))
	s, _ := x.Server(srv.ID)
	if s.State != Failed || s.Reason != "authentication failed" {
		t.Fatalf("after failure: %+v", s)
	}
	if act := x.Activity(); len(act) != 1 || act[0] != "connection to local failed: authentication failed" {
		t.Errorf("activity = %q", act)
	}

	x.Apply(events.NewConnectionEstablished(env, srv.ID, "localhost:27017"))
	s, _ = x.Server(srv.ID)
	if s.State != Connected || s.Address != "localhost:27017" || s.Reason != "" {
		t.Errorf("after success: %+v", s)
	}

	shell, ok := x.Shell(sh.ID)
	if !ok || shell.Server != srv.ID || shell.InitialScript != "db.stats()" {
		t.Errorf("shell = %+v, %v", shell, ok)
	}
	if got := x.Servers(); len(got) != 1 || got[0].ID != srv.ID {
		t.Errorf("Servers() = %+v", got)
	}
}

func TestListsResolveThroughArena(t *testing.T) {
	x, arena, srv, sh := setup(t)

	dbs := arena.PutDatabases(srv.ID, []string{"admin", "shop"})
	x.Apply(events.NewDatabaseListLoaded(events.Envelope{Shell: sh.ID}, srv.ID, dbs))
	if got := x.DatabaseNames(srv.ID); len(got) != 2 || got[1] != "shop" {
		t.Errorf("DatabaseNames() = %v", got)
	}

	docs := arena.PutDocuments(sh.ID, "shop.users", [][]byte{{5, 0, 0, 0, 0}})
	page := events.Page{Take: 20, Skip: 40}
	x.Apply(events.NewDocumentListLoaded(events.Envelope{Shell: sh.ID}, "shop.users", page, docs))

	shell, _ := x.Shell(sh.ID)
	if shell.Namespace != "shop.users" || shell.Page != page {
		t.Errorf("shell = %+v", shell)
	}
	if got := x.Documents(sh.ID); len(got) != 1 {
		t.Errorf("Documents() = %d", len(got))
	}

	results := []backend.Result{{Statement: "{\"ping\":1}", Message: "ping ok"}}
	x.Apply(events.NewScriptExecuted(events.Envelope{Shell: sh.ID}, results))
	if shell, _ := x.Shell(sh.ID); len(shell.Results) != 1 || shell.Results[0].Message != "ping ok" {
		t.Errorf("results = %+v", shell.Results)
	}
}

func TestResponsesRecordFailures(t *testing.T) {
	x, _, _, sh := setup(t)
	g := guard.New()
	token := g.NewSender().Token()

	req := events.NewExecuteQueryRequest(token, sh.ID, "shop", 0, 0)
	fail := errors.New(errors.InvalidArgument, "invalid namespace")
	x.Apply(events.NewExecuteQueryResponse(req, events.Fail[[]backend.Document](fail)))

	shell, _ := x.Shell(sh.ID)
	if shell.LastError != fail {
		t.Errorf("LastError = %v", shell.LastError)
	}
	if !x.HasFailures() || x.FailureCount() != 1 {
		t.Errorf("FailureCount() = %d", x.FailureCount())
	}

	ok := events.NewInitRequest(token, sh.ID)
	x.Apply(events.NewInitResponse(ok, events.Ok(events.Empty{})))
	if shell, _ := x.Shell(sh.ID); !shell.LastError.IsZero() {
		t.Errorf("success did not clear LastError: %v", shell.LastError)
	}
}

func TestActivityIsBounded(t *testing.T) {
	x, _, _, _ := setup(t)
	for i := 0; i < maxActivity+10; i++ {
		x.Apply(events.NewSomethingHappened(events.Envelope{}, fmt.Sprintf("event %d", i)))
	}
	act := x.Activity()
	if len(act) != maxActivity {
		t.Fatalf("len(Activity()) = %d", len(act))
	}
	if act[0] != "event 10" {
		t.Errorf("oldest kept = %q", act[0])
	}

	x.Reset()
	if len(x.Activity()) != 0 || len(x.Servers()) != 0 {
		t.Error("Reset() kept state")
	}
}

func TestConnStateString(t *testing.T) {
	for state, want := range map[ConnState]string{Idle: "idle", Connecting: "connecting", Connected: "connected", Failed: "failed"} {
		if state.String() != want {
			t.Errorf("%d.String() = %q", state, state.String())
		}
	}
}
