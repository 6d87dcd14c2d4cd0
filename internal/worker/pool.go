// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package worker

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"seedfast/docshell/internal/backend"
	"seedfast/docshell/internal/bus"
	"seedfast/docshell/internal/domain"
	"seedfast/docshell/internal/errors"
	"seedfast/docshell/internal/events"
	"seedfast/docshell/internal/guard"
	"seedfast/docshell/internal/logging"
)

// Identity is the bus identity the pool subscribes under.
const Identity guard.SenderID = "worker-pool"

var (
	ErrShellOpen    = stderrors.New("worker: shell already open")
	ErrUnknownShell = stderrors.New("worker: unknown shell")
	ErrPoolClosed   = stderrors.New("worker: pool shut down")
)

// Pool routes requests from the bus to the executor of their shell.
type Pool struct {
	bus   *bus.Bus
	arena *domain.Arena
	opts  Options
	log   *slog.Logger
	sub   *bus.Subscription

	mu        sync.Mutex
	executors map[domain.ShellID]*Executor
	closing   bool
}

// NewPool subscribes to every request kind on b.
func NewPool(b *bus.Bus, arena *domain.Arena, opts Options) (*Pool, error) {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	p := &Pool{
		bus:       b,
		arena:     arena,
		opts:      opts,
		log:       opts.Logger,
		executors: make(map[domain.ShellID]*Executor),
	}
	sub, err := b.Subscribe(Identity, events.RequestKinds(), bus.AnyThread, p.route)
	if err != nil {
		return nil, fmt.Errorf("subscribe worker pool: %w", err)
	}
	p.sub = sub
	return p, nil
}

// Open starts an executor for a shell recorded in the arena. The executor
// takes ownership of client.
func (p *Pool) Open(shell domain.ShellID, client backend.Client) error {
	sh, ok := p.arena.Shell(shell)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownShell, shell)
	}
	srv, ok := p.arena.Server(sh.Server)
	if !ok {
		return fmt.Errorf("%w: server of shell %s", domain.ErrUnknownServer, shell)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closing {
		return ErrPoolClosed
	}
	if _, exists := p.executors[shell]; exists {
		return fmt.Errorf("%w: %s", ErrShellOpen, shell)
	}
	ex := NewExecutor(sh, srv, client, p.bus, p.arena, p.opts)
	ex.onExit = p.forget
	p.executors[shell] = ex
	ex.Start()
	p.log.Debug("shell opened", "shell", string(shell), "server", srv.Name)
	return nil
}

func (p *Pool) forget(ex *Executor) {
	p.mu.Lock()
	if p.executors[ex.Shell()] == ex {
		delete(p.executors, ex.Shell())
	}
	p.mu.Unlock()
}

func (p *Pool) executor(shell domain.ShellID) *Executor {
	ex, _ := p.lookup(shell)
	return ex
}

func (p *Pool) lookup(shell domain.ShellID) (ex *Executor, closing bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.executors[shell], p.closing
}

// Has reports whether shell has a running executor.
func (p *Pool) Has(shell domain.ShellID) bool { return p.executor(shell) != nil }

// Len returns the number of running executors.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.executors)
}

func (p *Pool) route(msg events.Message) {
	req, ok := msg.(events.Request)
	if !ok {
		return
	}
	shell := req.Envelope().Shell
	ex, closing := p.lookup(shell)
	switch {
	case ex == nil && closing:
		p.bus.Publish(FailureFor(req, errors.New(errors.InvalidArgument, "shell closed")))
	case ex == nil:
		p.log.Debug("request for unknown shell", "kind", req.Kind(), "shell", string(shell))
		p.bus.Publish(FailureFor(req, errors.Newf(errors.InvalidArgument, "unknown shell %q", shell)))
	case !ex.Submit(req):
		p.bus.Publish(FailureFor(req, errors.New(errors.InvalidArgument, "shell closed")))
	}
}

// Close stops the executor of shell without a FinalizeRequest.
func (p *Pool) Close(ctx context.Context, shell domain.ShellID) error {
	ex := p.executor(shell)
	if ex == nil {
		return nil
	}
	return ex.Stop(ctx)
}

// Shutdown stops every executor concurrently, then unsubscribes from the
// bus. Requests still routed meanwhile are answered "shell closed".
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closing = true
	running := make([]*Executor, 0, len(p.executors))
	for _, ex := range p.executors {
		running = append(running, ex)
	}
	p.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, ex := range running {
		g.Go(func() error {
			if err := ex.Stop(gctx); err != nil {
				return fmt.Errorf("stop shell %s: %w", ex.Shell(), err)
			}
			return nil
		})
	}
	err := g.Wait()
	if derr := p.sub.Drain(ctx); derr != nil {
		err = stderrors.Join(err, fmt.Errorf("drain request lanes: %w", derr))
	}
	return err
}
