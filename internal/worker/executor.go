// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package worker runs blocking backend calls off the foreground.
//
// Each open shell gets one Executor: a goroutine that owns the shell's
// backend.Client and works through the shell's requests strictly in arrival
// order. Every request produces exactly one response on the bus, carrying
// either the payload or an errors.E; backend faults never leave the executor
// in any other form.
package worker

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"seedfast/docshell/internal/backend"
	"seedfast/docshell/internal/domain"
	"seedfast/docshell/internal/errors"
	"seedfast/docshell/internal/events"
	"seedfast/docshell/internal/logging"
	"seedfast/docshell/internal/mailbox"
)

// Publisher is the part of the bus an executor needs.
type Publisher interface {
	Publish(events.Message)
}

// Options tune executors.
type Options struct {
	// CallTimeout bounds every backend call. Zero means no deadline.
	CallTimeout time.Duration
	// HighWater is the queue depth at which a warning is emitted. Zero disables it.
	HighWater int
	Logger    *slog.Logger
}

const closeTimeout = 5 * time.Second

// Executor serves one shell.
type Executor struct {
	shell  domain.Shell
	server domain.Server
	client backend.Client
	pub    Publisher
	arena  *domain.Arena
	opts   Options
	log    *slog.Logger

	box      *mailbox.Mailbox[events.Request]
	stopping atomic.Bool
	warned   atomic.Bool
	done     chan struct{}
	start    sync.Once
	onExit   func(*Executor)
}

// NewExecutor creates an executor for shell. Call Start to begin serving.
func NewExecutor(shell domain.Shell, server domain.Server, client backend.Client, pub Publisher, arena *domain.Arena, opts Options) *Executor {
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &Executor{
		shell:  shell,
		server: server,
		client: client,
		pub:    pub,
		arena:  arena,
		opts:   opts,
		log:    log.With("shell", string(shell.ID)),
		box:    mailbox.New[events.Request](),
		done:   make(chan struct{}),
	}
}

func (e *Executor) Shell() domain.ShellID { return e.shell.ID }

// Start launches the executor goroutine. Extra calls do nothing.
func (e *Executor) Start() {
	e.start.Do(func() { go e.run() })
}

// Done is closed once the executor has exited and closed its client.
func (e *Executor) Done() <-chan struct{} { return e.done }

// Submit queues req. It never blocks and reports false once the executor no
// longer accepts work.
func (e *Executor) Submit(req events.Request) bool {
	depth, ok := e.box.Push(req)
	if !ok {
		return false
	}
	e.log.Debug("request queued", "kind", req.Kind(), "request", req.Envelope().ID, "depth", depth)

	if e.opts.HighWater > 0 && depth >= e.opts.HighWater && e.warned.CompareAndSwap(false, true) {
		text := fmt.Sprintf("shell %s has %d queued requests", e.shell.ID, depth)
		e.log.Warn("request queue above high-water mark", "depth", depth, "high_water", e.opts.HighWater)
		e.pub.Publish(events.NewSomethingHappened(events.Envelope{Shell: e.shell.ID}, text))
	}
	return true
}

// Stop rejects queued requests, lets the one in flight finish and closes the
// client. It waits for the executor to exit or ctx to end.
func (e *Executor) Stop(ctx context.Context) error {
	e.stopping.Store(true)
	e.box.Close()
	e.Start()
	select {
	case <-e.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Executor) run() {
	finalized := false
	defer func() {
		e.rejectQueued()
		if !finalized {
			ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
			if err := e.client.Close(ctx); err != nil {
				e.log.Debug("closing backend client", "error", logging.Mask(err.Error()))
			}
			cancel()
		}
		if e.onExit != nil {
			e.onExit(e)
		}
		close(e.done)
	}()

	for {
		req, err := e.box.Pop(context.Background())
		if err != nil || e.stopping.Load() {
			if err == nil {
				e.reject(req, "shell closed")
			}
			return
		}
		if e.box.Len() == 0 {
			e.warned.Store(false)
		}
		if e.handle(req) {
			finalized = true
			return
		}
	}
}

func (e *Executor) rejectQueued() {
	for _, req := range e.box.Drain() {
		e.reject(req, "shell closed")
	}
}

func (e *Executor) reject(req events.Request, reason string) {
	e.log.Debug("request rejected", "kind", req.Kind(), "request", req.Envelope().ID, "reason", reason)
	e.pub.Publish(FailureFor(req, errors.New(errors.InvalidArgument, reason)))
}

// handle executes one request and reports whether the executor must exit.
func (e *Executor) handle(req events.Request) (finished bool) {
	started := time.Now()
	e.log.Debug("request executing", "kind", req.Kind(), "request", req.Envelope().ID)

	var resp events.Response
	switch r := req.(type) {
	case events.InitRequest:
		ce := e.call(errors.DriverError, e.client.Init)
		resp = events.NewInitResponse(r, outcome(events.Empty{}, ce))

	case events.FinalizeRequest:
		ce := e.call(errors.DriverError, e.client.Close)
		resp = events.NewFinalizeResponse(r, outcome(events.Empty{}, ce))
		finished = true

	case events.EstablishConnectionRequest:
		resp = e.establishConnection(r)

	case events.LoadDatabaseNamesRequest:
		resp = e.loadDatabaseNames(r)

	case events.LoadCollectionNamesRequest:
		resp = e.loadCollectionNames(r)

	case events.ExecuteQueryRequest:
		resp = e.executeQuery(r)

	case events.ExecuteScriptRequest:
		resp = e.executeScript(r)

	default:
		e.log.Error("unhandled request kind", "kind", req.Kind())
		resp = FailureFor(req, errors.Newf(errors.InvalidArgument, "unsupported request %s", req.Kind()))
	}

	if ce, failed := events.Failure(resp); failed {
		e.log.Debug("request failed", "kind", req.Kind(), "request", req.Envelope().ID,
			"error_kind", ce.Kind.String(), "elapsed", time.Since(started))
	} else {
		e.log.Debug("request completed", "kind", req.Kind(), "request", req.Envelope().ID, "elapsed", time.Since(started))
	}
	e.pub.Publish(resp)
	return finished
}

func (e *Executor) establishConnection(r events.EstablishConnectionRequest) events.Response {
	e.pub.Publish(events.NewConnecting(r.Env, e.server.ID))

	var addr string
	ce := e.call(errors.ConnectionFailed, func(ctx context.Context) error {
		var err error
		addr, err = e.client.Connect(ctx, backend.Credentials{
			Database: r.DatabaseName,
			User:     r.UserName,
			Password: r.UserPassword,
		})
		return err
	})
	if ce.IsZero() {
		e.log.Info("connection established", "server", e.server.Name, "address", logging.Mask(addr))
		e.pub.Publish(events.NewConnectionEstablished(r.Env, e.server.ID, addr))
	} else {
		e.log.Warn("connection failed", "server", e.server.Name, "error", ce.Error())
		e.pub.Publish(events.NewConnectionFailed(r.Env, e.server.ID, ce.Reason))
	}
	return events.NewEstablishConnectionResponse(r, outcome(addr, ce))
}

func (e *Executor) loadDatabaseNames(r events.LoadDatabaseNamesRequest) events.Response {
	var names []string
	ce := e.call(errors.DriverError, func(ctx context.Context) error {
		var err error
		names, err = e.client.DatabaseNames(ctx)
		return err
	})
	if ce.IsZero() {
		ids := e.arena.PutDatabases(e.server.ID, names)
		e.pub.Publish(events.NewDatabaseListLoaded(r.Env, e.server.ID, ids))
	}
	return events.NewLoadDatabaseNamesResponse(r, outcome(names, ce))
}

func (e *Executor) loadCollectionNames(r events.LoadCollectionNamesRequest) events.Response {
	db := strings.TrimSpace(r.DatabaseName)
	if db == "" {
		return events.NewLoadCollectionNamesResponse(r,
			events.Fail[events.CollectionNames](errors.New(errors.InvalidArgument, "database name is empty")))
	}

	var names []string
	ce := e.call(errors.DriverError, func(ctx context.Context) error {
		var err error
		names, err = e.client.CollectionNames(ctx, db)
		return err
	})
	if ce.IsZero() {
		e.arena.PutCollections(e.server.ID, db, names)
	}
	return events.NewLoadCollectionNamesResponse(r, outcome(events.CollectionNames{Database: db, Names: names}, ce))
}

func (e *Executor) executeQuery(r events.ExecuteQueryRequest) events.Response {
	ns, err := backend.ParseNamespace(r.Namespace)
	if err == nil && (r.Page.Take < 0 || r.Page.Skip < 0) {
		err = errors.Newf(errors.InvalidArgument, "take and skip must not be negative (take=%d, skip=%d)", r.Page.Take, r.Page.Skip)
	}
	if err != nil {
		return events.NewExecuteQueryResponse(r, events.Fail[[]backend.Document](errors.FromError(err, errors.InvalidArgument)))
	}

	var docs []backend.Document
	ce := e.call(errors.DriverError, func(ctx context.Context) error {
		var err error
		docs, err = e.client.Find(ctx, backend.Query{Namespace: ns, Take: r.Page.Take, Skip: r.Page.Skip})
		return err
	})
	if ce.IsZero() {
		raws := make([][]byte, len(docs))
		for i, d := range docs {
			raws[i] = d
		}
		ids := e.arena.PutDocuments(e.shell.ID, ns.String(), raws)
		e.pub.Publish(events.NewDocumentListLoaded(r.Env, ns.String(), r.Page, ids))
	}
	return events.NewExecuteQueryResponse(r, outcome(docs, ce))
}

func (e *Executor) executeScript(r events.ExecuteScriptRequest) events.Response {
	if strings.TrimSpace(r.Script) == "" {
		return events.NewExecuteScriptResponse(r, events.Fail[[]backend.Result](errors.New(errors.InvalidArgument, "script is empty")))
	}
	if r.Page.Take < 0 || r.Page.Skip < 0 {
		return events.NewExecuteScriptResponse(r, events.Fail[[]backend.Result](
			errors.Newf(errors.InvalidArgument, "take and skip must not be negative (take=%d, skip=%d)", r.Page.Take, r.Page.Skip)))
	}
	db := r.DatabaseName
	if db == "" {
		db = e.shell.Database
	}

	var results []backend.Result
	ce := e.call(errors.DriverError, func(ctx context.Context) error {
		var err error
		results, err = e.client.Run(ctx, backend.Script{Database: db, Text: r.Script, Take: r.Page.Take, Skip: r.Page.Skip})
		return err
	})
	if ce.IsZero() {
		e.pub.Publish(events.NewScriptExecuted(r.Env, results))
	}
	return events.NewExecuteScriptResponse(r, outcome(results, ce))
}

// call runs fn under the call timeout and converts whatever it returns, or
// panics with, into an errors.E. Unclassified faults get fallback.
func (e *Executor) call(fallback errors.Kind, fn func(context.Context) error) (out errors.E) {
	ctx := context.Background()
	cancel := func() {}
	if e.opts.CallTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, e.opts.CallTimeout)
	}
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			e.log.Error("backend call panicked", "panic", fmt.Sprint(r))
			out = errors.New(errors.DriverError, logging.Mask(fmt.Sprintf("backend panic: %v", r)))
		}
	}()

	err := fn(ctx)
	if err == nil {
		return errors.E{}
	}
	out = errors.FromError(err, fallback)
	if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		out.Kind = errors.Timeout
	}
	out.Reason = logging.Mask(out.Reason)
	return out
}

func outcome[T any](v T, ce errors.E) events.Outcome[T] {
	if ce.IsZero() {
		return events.Ok(v)
	}
	return events.Fail[T](ce)
}

// FailureFor builds the failed response answering req.
func FailureFor(req events.Request, ce errors.E) events.Response {
	switch r := req.(type) {
	case events.InitRequest:
		return events.NewInitResponse(r, events.Fail[events.Empty](ce))
	case events.FinalizeRequest:
		return events.NewFinalizeResponse(r, events.Fail[events.Empty](ce))
	case events.EstablishConnectionRequest:
		return events.NewEstablishConnectionResponse(r, events.Fail[string](ce))
	case events.LoadDatabaseNamesRequest:
		return events.NewLoadDatabaseNamesResponse(r, events.Fail[[]string](ce))
	case events.LoadCollectionNamesRequest:
		return events.NewLoadCollectionNamesResponse(r, events.Fail[events.CollectionNames](ce))
	case events.ExecuteQueryRequest:
		return events.NewExecuteQueryResponse(r, events.Fail[[]backend.Document](ce))
	case events.ExecuteScriptRequest:
		return events.NewExecuteScriptResponse(r, events.Fail[[]backend.Result](ce))
	}
	panic(fmt.Sprintf("worker: no response for request kind %s", req.Kind()))
}
