// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package postgres exposes a PostgreSQL server as a document backend over a
// pgx connection pool. Databases map to databases, tables (schema-qualified
// outside "public") map to collections and rows map to BSON documents.
//
// Scripts are SQL. Statements are split on semicolons and run in order
// inside a single transaction, so a failing statement rolls back the whole
// script.
package postgres

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"seedfast/docshell/internal/backend"
	"seedfast/docshell/internal/domain"
	"seedfast/docshell/internal/errors"
)

// Client is a backend.Client backed by one pgx pool per database touched.
type Client struct {
	uri string
	cfg *pgxpool.Config
	// pools by database name; the connected database's pool is created by Connect
	pools  map[string]*pgxpool.Pool
	closed bool
}

// New returns an unconnected client for server.
func New(server domain.Server) (*Client, error) {
	if strings.TrimSpace(server.URI) == "" {
		return nil, errors.Newf(errors.InvalidArgument, "server %s has no address", server.Name)
	}
	return &Client{uri: server.URI, pools: make(map[string]*pgxpool.Pool)}, nil
}

// Factory adapts New to backend.Factory.
func Factory(server domain.Server) (backend.Client, error) {
	return New(server)
}

// Init parses the connection string without connecting.
func (c *Client) Init(ctx context.Context) error {
	if c.closed {
		return backend.ErrClosed
	}
	cfg, err := pgxpool.ParseConfig(c.uri)
	if err != nil {
		return errors.Wrap(errors.InvalidArgument, "invalid connection string", err)
	}
	c.cfg = cfg
	return nil
}

// Connect opens a pool with creds and pings it. An empty creds.Database keeps
// the database named in the connection string.
func (c *Client) Connect(ctx context.Context, creds backend.Credentials) (string, error) {
	if c.closed {
		return "", backend.ErrClosed
	}
	if c.cfg == nil {
		if err := c.Init(ctx); err != nil {
			return "", err
		}
	}
	c.closePools()

	if creds.User != "" {
		c.cfg.ConnConfig.User = creds.User
		c.cfg.ConnConfig.Password = creds.Password
	}
	if creds.Database != "" {
		c.cfg.ConnConfig.Database = creds.Database
	}

	if _, err := c.pool(ctx, c.cfg.ConnConfig.Database); err != nil {
		return "", err
	}
	return net.JoinHostPort(c.cfg.ConnConfig.Host, strconv.Itoa(int(c.cfg.ConnConfig.Port))), nil
}

func (c *Client) DatabaseNames(ctx context.Context) ([]string, error) {
	pool, err := c.defaultPool(ctx)
	if err != nil {
		return nil, err
	}
	return queryStrings(ctx, pool, listDatabasesSQL)
}

// CollectionNames lists the tables and views of database.
func (c *Client) CollectionNames(ctx context.Context, database string) ([]string, error) {
	if c.cfg == nil || len(c.pools) == 0 {
		return nil, c.notReady()
	}
	pool, err := c.pool(ctx, database)
	if err != nil {
		return nil, err
	}
	return queryStrings(ctx, pool, listTablesSQL)
}

// Find returns rows of the table named by q.Namespace.Collection.
func (c *Client) Find(ctx context.Context, q backend.Query) ([]backend.Document, error) {
	if c.cfg == nil || len(c.pools) == 0 {
		return nil, c.notReady()
	}
	pool, err := c.pool(ctx, q.Namespace.Database)
	if err != nil {
		return nil, err
	}

	var limit any
	if q.Take > 0 {
		limit = q.Take
	}
	sql := fmt.Sprintf("SELECT row_to_json(t)::text FROM %s AS t LIMIT $1 OFFSET $2", tableIdentifier(q.Namespace.Collection))

	rows, err := pool.Query(ctx, sql, limit, max(q.Skip, 0))
	if err != nil {
		return nil, classify(ctx, err)
	}
	defer rows.Close()

	var docs []backend.Document
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, classify(ctx, err)
		}
		doc, err := jsonToDocument(text)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(ctx, err)
	}
	return docs, nil
}

// Run executes the statements of s in one transaction.
func (c *Client) Run(ctx context.Context, s backend.Script) ([]backend.Result, error) {
	if c.cfg == nil || len(c.pools) == 0 {
		return nil, c.notReady()
	}
	statements := SplitStatements(s.Text)
	if len(statements) == 0 {
		return nil, errors.New(errors.InvalidArgument, "script is empty")
	}

	database := s.Database
	if database == "" {
		database = c.cfg.ConnConfig.Database
	}
	pool, err := c.pool(ctx, database)
	if err != nil {
		return nil, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, classify(ctx, err)
	}
	defer tx.Rollback(context.WithoutCancel(ctx)) // no-op after commit

	results := make([]backend.Result, 0, len(statements))
	for i, stmt := range statements {
		res, err := runStatement(ctx, tx, stmt)
		if err != nil {
			return nil, fmt.Errorf("statement %d: %w", i+1, classify(ctx, err))
		}
		res.Documents = backend.Page(res.Documents, s.Take, s.Skip)
		results = append(results, res)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit failed: %w", classify(ctx, err))
	}
	return results, nil
}

// Close closes every pool. It is safe to call more than once.
func (c *Client) Close(ctx context.Context) error {
	c.closed = true
	c.closePools()
	return nil
}

func runStatement(ctx context.Context, tx pgx.Tx, stmt string) (backend.Result, error) {
	res := backend.Result{Statement: stmt}

	rows, err := tx.Query(ctx, stmt)
	if err != nil {
		return res, err
	}
	defer rows.Close()

	fds := rows.FieldDescriptions()
	cols := make([]string, len(fds))
	for i, fd := range fds {
		cols[i] = fd.Name
	}

	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return res, err
		}
		doc, err := rowToDocument(cols, vals)
		if err != nil {
			return res, err
		}
		res.Documents = append(res.Documents, doc)
	}
	if err := rows.Err(); err != nil {
		return res, err
	}

	tag := rows.CommandTag()
	res.Message = tag.String()
	if len(fds) == 0 || !tag.Select() {
		res.Affected = tag.RowsAffected()
	}
	return res, nil
}

// pool returns the pool for database, opening and pinging it on first use.
func (c *Client) pool(ctx context.Context, database string) (*pgxpool.Pool, error) {
	if p, ok := c.pools[database]; ok {
		return p, nil
	}

	cfg := c.cfg.Copy()
	cfg.ConnConfig.Database = database

	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, classify(ctx, err)
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, classify(ctx, err)
	}
	c.pools[database] = p
	return p, nil
}

func (c *Client) defaultPool(ctx context.Context) (*pgxpool.Pool, error) {
	if c.cfg == nil || len(c.pools) == 0 {
		return nil, c.notReady()
	}
	return c.pool(ctx, c.cfg.ConnConfig.Database)
}

func (c *Client) notReady() error {
	if c.closed {
		return backend.ErrClosed
	}
	return backend.ErrNotConnected
}

func (c *Client) closePools() {
	for name, p := range c.pools {
		p.Close()
		delete(c.pools, name)
	}
}
