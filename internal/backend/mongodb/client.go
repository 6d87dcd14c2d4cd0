// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package mongodb implements backend.Client on the official MongoDB driver.
package mongodb

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"seedfast/docshell/internal/backend"
	"seedfast/docshell/internal/domain"
	"seedfast/docshell/internal/errors"
)

// Client is a backend.Client over one mongo.Client. It is not safe for
// concurrent use; the worker that owns it serialises every call.
type Client struct {
	uri    string
	opts   *options.ClientOptions
	conn   *mongo.Client
	closed bool
}

// New returns an unconnected client for server.
func New(server domain.Server) (*Client, error) {
	if strings.TrimSpace(server.URI) == "" {
		return nil, errors.Newf(errors.InvalidArgument, "server %s has no address", server.Name)
	}
	return &Client{uri: server.URI}, nil
}

// Factory adapts New to backend.Factory.
func Factory(server domain.Server) (backend.Client, error) {
	return New(server)
}

// Init parses the connection string. It does no network I/O.
func (c *Client) Init(ctx context.Context) error {
	if c.closed {
		return backend.ErrClosed
	}
	opts := options.Client().ApplyURI(c.uri)
	if err := opts.Validate(); err != nil {
		return errors.Wrap(errors.InvalidArgument, "invalid connection string", err)
	}
	c.opts = opts
	return nil
}

// Connect authenticates against creds.Database and pings the primary.
func (c *Client) Connect(ctx context.Context, creds backend.Credentials) (string, error) {
	if c.closed {
		return "", backend.ErrClosed
	}
	if c.opts == nil {
		if err := c.Init(ctx); err != nil {
			return "", err
		}
	}
	if c.conn != nil {
		_ = c.conn.Disconnect(ctx)
		c.conn = nil
	}

	opts := *c.opts
	if creds.User != "" {
		opts.SetAuth(options.Credential{
			AuthSource:  creds.Database,
			Username:    creds.User,
			Password:    creds.Password,
			PasswordSet: creds.Password != "",
		})
	}

	conn, err := mongo.Connect(ctx, &opts)
	if err != nil {
		return "", classify(ctx, err)
	}
	if err := conn.Ping(ctx, readpref.Primary()); err != nil {
		_ = conn.Disconnect(context.WithoutCancel(ctx))
		return "", classify(ctx, err)
	}
	c.conn = conn
	return strings.Join(opts.Hosts, ","), nil
}

func (c *Client) DatabaseNames(ctx context.Context) ([]string, error) {
	conn, err := c.connected()
	if err != nil {
		return nil, err
	}
	names, err := conn.ListDatabaseNames(ctx, bson.D{})
	if err != nil {
		return nil, classify(ctx, err)
	}
	return names, nil
}

func (c *Client) CollectionNames(ctx context.Context, database string) ([]string, error) {
	conn, err := c.connected()
	if err != nil {
		return nil, err
	}
	names, err := conn.Database(database).ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, classify(ctx, err)
	}
	return names, nil
}

// Find returns the documents of q.Namespace in natural order.
func (c *Client) Find(ctx context.Context, q backend.Query) ([]backend.Document, error) {
	conn, err := c.connected()
	if err != nil {
		return nil, err
	}

	opts := options.Find()
	if q.Skip > 0 {
		opts.SetSkip(int64(q.Skip))
	}
	if q.Take > 0 {
		opts.SetLimit(int64(q.Take))
	}

	cur, err := conn.Database(q.Namespace.Database).Collection(q.Namespace.Collection).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, classify(ctx, err)
	}
	defer cur.Close(context.WithoutCancel(ctx))

	var docs []backend.Document
	for cur.Next(ctx) {
		// Current is reused by the cursor
		docs = append(docs, append(backend.Document(nil), cur.Current...))
	}
	if err := cur.Err(); err != nil {
		return nil, classify(ctx, err)
	}
	return docs, nil
}

// Run executes each command document of the script in order and stops at the
// first failure.
func (c *Client) Run(ctx context.Context, s backend.Script) ([]backend.Result, error) {
	conn, err := c.connected()
	if err != nil {
		return nil, err
	}
	commands, err := ParseScript(s.Text)
	if err != nil {
		return nil, err
	}

	db := conn.Database(s.Database)
	results := make([]backend.Result, 0, len(commands))
	for _, cmd := range commands {
		reply, err := db.RunCommand(ctx, cmd.Doc).Raw()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", cmd.Name, classify(ctx, err))
		}
		res, err := resultOf(cmd, reply)
		if err != nil {
			return nil, err
		}
		res.Documents = backend.Page(res.Documents, s.Take, s.Skip)
		results = append(results, res)
	}
	return results, nil
}

// Close disconnects. It is safe to call more than once.
func (c *Client) Close(ctx context.Context) error {
	if c.closed {
		return nil
	}
	c.closed = true
	if c.conn == nil {
		return nil
	}
	err := c.conn.Disconnect(ctx)
	c.conn = nil
	if err != nil && !stderrors.Is(err, mongo.ErrClientDisconnected) {
		return classify(ctx, err)
	}
	return nil
}

func (c *Client) connected() (*mongo.Client, error) {
	if c.closed {
		return nil, backend.ErrClosed
	}
	if c.conn == nil {
		return nil, backend.ErrNotConnected
	}
	return c.conn, nil
}
