// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"seedfast/docshell/internal/backend"
	"seedfast/docshell/internal/backend/mongodb"
	"seedfast/docshell/internal/backend/postgres"
	"seedfast/docshell/internal/config"
	"seedfast/docshell/internal/console"
	"seedfast/docshell/internal/domain"
	"seedfast/docshell/internal/dsn"
	"seedfast/docshell/internal/errors"
	"seedfast/docshell/internal/events"
	"seedfast/docshell/internal/explorer"
	"seedfast/docshell/internal/keychain"
	"seedfast/docshell/internal/render"
	"seedfast/docshell/internal/terminal"
)

// envDSN overrides the saved connections when set.
const envDSN = "DOCSHELL_DSN"

// errReported marks a failure that was already presented to the user.
var errReported = stderrors.New("failure already reported")

// target is a resolved connection: its name, secret DSN and parsed form.
type target struct {
	Name     string
	DSN      string
	Info     *dsn.DSNInfo
	Database string
}

// resolveTarget finds the connection to use. DOCSHELL_DSN wins; otherwise
// name selects a saved connection, and may be empty when exactly one exists.
func resolveTarget(c config.Config, name string) (target, error) {
	if env := strings.TrimSpace(os.Getenv(envDSN)); env != "" && name == "" {
		info, err := dsn.ParseInfo(env)
		if err != nil {
			return target{}, fmt.Errorf("%s: %w", envDSN, err)
		}
		return target{Name: "env", DSN: env, Info: info, Database: info.Database}, nil
	}

	if name == "" {
		switch len(c.Connections) {
		case 0:
			return target{}, fmt.Errorf("no connection configured, run: docshell connect <name>")
		case 1:
			name = c.Connections[0].Name
		default:
			return target{}, fmt.Errorf("several connections are saved, pass one with --conn")
		}
	}
	conn, ok := c.Connection(name)
	if !ok {
		return target{}, fmt.Errorf("unknown connection %q, run: docshell connect %s", name, name)
	}

	km, err := keychain.GetManager()
	if err != nil {
		return target{}, fmt.Errorf("secure storage is not available: %w", err)
	}
	raw, err := km.LoadConnection(name)
	if err != nil {
		return target{}, err
	}
	info, err := dsn.ParseInfo(raw)
	if err != nil {
		return target{}, err
	}
	db := conn.Database
	if db == "" {
		db = info.Database
	}
	return target{Name: name, DSN: raw, Info: info, Database: db}, nil
}

// factoryFor picks the backend adapter for a database type.
func factoryFor(t dsn.DBType) (backend.Factory, error) {
	switch t {
	case dsn.DBTypeMongoDB:
		return mongodb.Factory, nil
	case dsn.DBTypePostgreSQL:
		return postgres.Factory, nil
	}
	return nil, fmt.Errorf("unsupported database type %q", t)
}

// app is one connected shell plus the views the commands render from.
type app struct {
	console *console.Console
	session *console.Session
	view    *explorer.Explorer
	server  domain.Server
	shell   domain.Shell
	target  target
	term    *terminal.Terminal
	out     *render.Renderer
}

// openApp builds the core for t, opens a shell on database and connects it.
// The spinner runs while the connection is being established.
func openApp(ctx context.Context, t target, database, initialScript string) (*app, error) {
	factory, err := factoryFor(t.Info.Type)
	if err != nil {
		return nil, err
	}
	c, err := console.New(console.Options{
		Factory:     factory,
		CallTimeout: cfg.Timeout(),
		HighWater:   cfg.QueueHighWater,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	a := &app{
		console: c,
		view:    explorer.New(c.Arena()),
		target:  t,
		term:    terminal.Std(),
		out:     render.New(os.Stdout),
	}
	a.session, err = c.NewSession(a.view.Apply, console.OnResponse(func(r events.Response) { a.view.Apply(r) }))
	if err != nil {
		_ = c.Close(context.WithoutCancel(ctx))
		return nil, err
	}

	a.server = c.AddServer(t.Name, t.Info.Redacted())
	a.shell, err = c.OpenShell(a.server.ID, database, initialScript)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	logger.Debug("shell opened",
		slog.String("server", a.server.Name),
		slog.String("uri", a.server.URI),
		slog.String("database", database))

	if err := a.connect(ctx); err != nil {
		a.Close(ctx)
		return nil, err
	}
	return a, nil
}

// connect sends Init and EstablishConnection for the shell.
func (a *app) connect(ctx context.Context) error {
	sp := startSpinner(fmt.Sprintf("connecting to %s", a.server.Name), a.term.Interactive())
	defer sp.Stop()

	tok, shell := a.session.Token(), a.shell.ID
	if _, err := a.call(ctx, events.NewInitRequest(tok, shell), "preparing "+a.server.Name, sp); err != nil {
		return err
	}
	info := a.target.Info
	sp.Update(fmt.Sprintf("authenticating to %s", info.Address()))
	_, err := a.call(ctx, events.NewEstablishConnectionRequest(tok, shell, info.AuthDatabase(), info.User, info.Password), "connecting to "+a.server.Name, sp)
	return err
}

// call sends req and waits for its response. A failed response is presented
// and returned as errReported so Execute does not print it twice.
func (a *app) call(ctx context.Context, req events.Request, action string, sp *spinner) (events.Response, error) {
	resp, err := a.session.Call(ctx, req)
	if err != nil {
		if sp != nil {
			sp.Stop()
		}
		e := errors.FromError(err, errors.DriverError)
		if stderrors.Is(err, context.DeadlineExceeded) {
			e.Kind = errors.Timeout
		}
		a.out.Error(e, action)
		return nil, errReported
	}
	a.view.Apply(resp)
	if resp.Failed() {
		if sp != nil {
			sp.Stop()
		}
		a.out.Error(resp.Err(), action)
		logger.Debug("request failed", slog.String("kind", string(req.Kind())), slog.String("error", resp.Err().Error()))
		return resp, errReported
	}
	return resp, nil
}

// Close finalizes the shell and shuts the core down. Failures are logged only.
func (a *app) Close(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	if a.shell.ID != "" {
		if _, err := a.session.Call(ctx, events.NewFinalizeRequest(a.session.Token(), a.shell.ID)); err != nil {
			logger.Debug("finalize", slog.String("error", err.Error()))
		}
	}
	a.session.Close()
	if err := a.console.Close(ctx); err != nil {
		logger.Warn("shutdown", slog.String("error", err.Error()))
	}
}
