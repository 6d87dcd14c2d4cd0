// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package console wires the dispatch core together: one guard, one bus with
// its foreground loop, the domain arena and the worker pool. Presentation
// code talks to it through Sessions and never touches a backend client.
package console

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"seedfast/docshell/internal/backend"
	"seedfast/docshell/internal/bus"
	"seedfast/docshell/internal/domain"
	"seedfast/docshell/internal/events"
	"seedfast/docshell/internal/guard"
	"seedfast/docshell/internal/logging"
	"seedfast/docshell/internal/worker"
)

var ErrNoFactory = stderrors.New("console: no backend factory")

// Options configures a Console.
type Options struct {
	// Factory builds the backend client of every shell.
	Factory     backend.Factory
	CallTimeout time.Duration
	HighWater   int
	Logger      *slog.Logger
}

// Console owns the core components for the lifetime of the process.
type Console struct {
	guard   *guard.Guard
	bus     *bus.Bus
	arena   *domain.Arena
	pool    *worker.Pool
	factory backend.Factory
	log     *slog.Logger
}

func New(opts Options) (*Console, error) {
	if opts.Factory == nil {
		return nil, ErrNoFactory
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}

	g := guard.New()
	b := bus.New(g, bus.WithLogger(opts.Logger))
	arena := domain.NewArena()
	pool, err := worker.NewPool(b, arena, worker.Options{
		CallTimeout: opts.CallTimeout,
		HighWater:   opts.HighWater,
		Logger:      opts.Logger,
	})
	if err != nil {
		b.Close()
		return nil, err
	}
	return &Console{
		guard:   g,
		bus:     b,
		arena:   arena,
		pool:    pool,
		factory: opts.Factory,
		log:     opts.Logger,
	}, nil
}

func (c *Console) Bus() *bus.Bus         { return c.bus }
func (c *Console) Loop() *bus.Loop       { return c.bus.Loop() }
func (c *Console) Arena() *domain.Arena  { return c.arena }
func (c *Console) Guard() *guard.Guard   { return c.guard }
func (c *Console) Pool() *worker.Pool    { return c.pool }
func (c *Console) Logger() *slog.Logger  { return c.log }

// AddServer records a server. uri must not carry credentials.
func (c *Console) AddServer(name, uri string) domain.Server {
	return c.arena.AddServer(name, uri)
}

// OpenShell records a shell on server, starts its worker and announces it
// with an OpeningShell notification.
func (c *Console) OpenShell(server domain.ServerID, database, initialScript string) (domain.Shell, error) {
	srv, ok := c.arena.Server(server)
	if !ok {
		return domain.Shell{}, fmt.Errorf("%w: %s", domain.ErrUnknownServer, server)
	}
	client, err := c.factory(srv)
	if err != nil {
		return domain.Shell{}, fmt.Errorf("create client for %s: %w", srv.Name, err)
	}

	sh, err := c.arena.AddShell(server, database, initialScript)
	if err != nil {
		return domain.Shell{}, err
	}
	if err := c.pool.Open(sh.ID, client); err != nil {
		c.arena.RemoveShell(sh.ID)
		_ = client.Close(context.Background())
		return domain.Shell{}, err
	}

	c.bus.Publish(events.NewOpeningShell(events.Envelope{Shell: sh.ID}, server, initialScript))
	c.log.Debug("shell opening", "shell", string(sh.ID), "server", srv.Name, "database", database)
	return sh, nil
}

// CloseShell stops the worker of shell without a FinalizeRequest and forgets
// the shell. Queued requests are answered with InvalidArgument.
func (c *Console) CloseShell(ctx context.Context, shell domain.ShellID) error {
	err := c.pool.Close(ctx, shell)
	c.arena.RemoveShell(shell)
	return err
}

// RemoveServer closes every shell of server and removes it with everything
// recorded under it.
func (c *Console) RemoveServer(ctx context.Context, server domain.ServerID) error {
	var errs []error
	for _, sh := range c.arena.Shells(server) {
		if err := c.pool.Close(ctx, sh.ID); err != nil {
			errs = append(errs, err)
		}
	}
	c.arena.RemoveServer(server)
	return stderrors.Join(errs...)
}

// Close stops every worker and then the bus. Responses still queued for the
// foreground are discarded.
func (c *Console) Close(ctx context.Context) error {
	err := c.pool.Shutdown(ctx)
	c.bus.Close()
	return err
}
