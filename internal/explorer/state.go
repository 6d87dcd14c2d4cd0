// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package explorer holds the foreground view of servers and shells, built
// only from the notifications and responses delivered on the loop.
package explorer

import (
	"fmt"
	"sync"

	"seedfast/docshell/internal/backend"
	"seedfast/docshell/internal/domain"
	"seedfast/docshell/internal/errors"
	"seedfast/docshell/internal/events"
)

// maxActivity bounds the activity log.
const maxActivity = 100

// ConnState is the connection state of a server as last announced.
type ConnState int

const (
	Idle ConnState = iota
	Connecting
	Connected
	Failed
)

func (s ConnState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Failed:
		return "failed"
	}
	return "idle"
}

// ServerState tracks one server.
type ServerState struct {
	ID        domain.ServerID
	State     ConnState
	Address   string
	Reason    string
	Databases []domain.DatabaseID
}

// ShellState tracks one shell.
type ShellState struct {
	ID            domain.ShellID
	Server        domain.ServerID
	InitialScript string
	Namespace     string
	Page          events.Page
	Documents     []domain.DocumentID
	Results       []backend.Result
	LastError     errors.E
}

// Explorer is the foreground model. Apply is called from the loop; readers
// such as a spinner goroutine may query it concurrently.
type Explorer struct {
	arena *domain.Arena

	mu       sync.Mutex
	servers  map[domain.ServerID]*ServerState
	order    []domain.ServerID
	shells   map[domain.ShellID]*ShellState
	activity []string
	failures int
}

// New creates an Explorer that resolves ids through arena.
func New(arena *domain.Arena) *Explorer {
	return &Explorer{
		arena:   arena,
		servers: make(map[domain.ServerID]*ServerState),
		shells:  make(map[domain.ShellID]*ShellState),
	}
}

// Reset forgets everything, for example when the user switches connection.
func (x *Explorer) Reset() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.servers = make(map[domain.ServerID]*ServerState)
	x.order = nil
	x.shells = make(map[domain.ShellID]*ShellState)
	x.activity = nil
	x.failures = 0
}

// Apply folds one delivered message into the model.
func (x *Explorer) Apply(msg events.Message) {
	x.mu.Lock()
	defer x.mu.Unlock()

	switch m := msg.(type) {
	case events.Connecting:
		x.server(m.Server).State = Connecting
	case events.ConnectionEstablished:
		s := x.server(m.Server)
		s.State, s.Address, s.Reason = Connected, m.Address, ""
	case events.ConnectionFailed:
		s := x.server(m.Server)
		s.State, s.Reason = Failed, m.Reason
		x.logLocked(fmt.Sprintf("connection to %s failed: %s", x.serverName(m.Server), m.Reason))
	case events.OpeningShell:
		sh := x.shell(m.Env.Shell)
		sh.Server, sh.InitialScript = m.Server, m.InitialScript
		x.server(m.Server)
	case events.DatabaseListLoaded:
		x.server(m.Server).Databases = append([]domain.DatabaseID(nil), m.Databases...)
	case events.DocumentListLoaded:
		sh := x.shell(m.Env.Shell)
		sh.Namespace, sh.Page = m.Namespace, m.Page
		sh.Documents = append([]domain.DocumentID(nil), m.Documents...)
	case events.ScriptExecuted:
		x.shell(m.Env.Shell).Results = append([]backend.Result(nil), m.Results...)
	case events.SomethingHappened:
		x.logLocked(m.Text)
	case events.Response:
		x.applyResponse(m)
	}
}

func (x *Explorer) applyResponse(r events.Response) {
	shell := r.Envelope().Shell
	if !r.Failed() {
		if sh, ok := x.shells[shell]; ok {
			sh.LastError = errors.E{}
		}
		return
	}
	e := r.Err()
	x.failures++
	x.shell(shell).LastError = e
	x.logLocked(fmt.Sprintf("%s: %s", r.Kind(), e))
}

func (x *Explorer) server(id domain.ServerID) *ServerState {
	s, ok := x.servers[id]
	if !ok {
		s = &ServerState{ID: id}
		x.servers[id] = s
		x.order = append(x.order, id)
	}
	return s
}

func (x *Explorer) shell(id domain.ShellID) *ShellState {
	sh, ok := x.shells[id]
	if !ok {
		sh = &ShellState{ID: id}
		x.shells[id] = sh
	}
	return sh
}

func (x *Explorer) serverName(id domain.ServerID) string {
	if srv, ok := x.arena.Server(id); ok {
		return srv.Name
	}
	return string(id)
}

func (x *Explorer) logLocked(line string) {
	x.activity = append(x.activity, line)
	if over := len(x.activity) - maxActivity; over > 0 {
		x.activity = append([]string(nil), x.activity[over:]...)
	}
}

// Server returns a copy of the state of id.
func (x *Explorer) Server(id domain.ServerID) (ServerState, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	s, ok := x.servers[id]
	if !ok {
		return ServerState{}, false
	}
	out := *s
	out.Databases = append([]domain.DatabaseID(nil), s.Databases...)
	return out, true
}

// Servers returns every known server in the order first seen.
func (x *Explorer) Servers() []ServerState {
	x.mu.Lock()
	defer x.mu.Unlock()
	out := make([]ServerState, 0, len(x.order))
	for _, id := range x.order {
		out = append(out, *x.servers[id])
	}
	return out
}

// Shell returns a copy of the state of id.
func (x *Explorer) Shell(id domain.ShellID) (ShellState, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	sh, ok := x.shells[id]
	if !ok {
		return ShellState{}, false
	}
	out := *sh
	out.Documents = append([]domain.DocumentID(nil), sh.Documents...)
	out.Results = append([]backend.Result(nil), sh.Results...)
	return out, true
}

// DatabaseNames resolves the databases last listed for server.
func (x *Explorer) DatabaseNames(server domain.ServerID) []string {
	s, ok := x.Server(server)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(s.Databases))
	for _, id := range s.Databases {
		if db, ok := x.arena.Database(id); ok {
			names = append(names, db.Name)
		}
	}
	return names
}

// Documents resolves the documents last loaded into shell.
func (x *Explorer) Documents(shell domain.ShellID) []domain.Document {
	sh, ok := x.Shell(shell)
	if !ok {
		return nil
	}
	return x.arena.Documents(sh.Documents)
}

// Activity returns the activity log, oldest first.
func (x *Explorer) Activity() []string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return append([]string(nil), x.activity...)
}

// FailureCount returns how many failed responses have been applied.
func (x *Explorer) FailureCount() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.failures
}

// HasFailures reports whether any response failed.
func (x *Explorer) HasFailures() bool {
	return x.FailureCount() > 0
}
