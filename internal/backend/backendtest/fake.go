// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package backendtest provides a scripted in-memory backend.Client for tests.
package backendtest

import (
	"context"
	"sync"

	"seedfast/docshell/internal/backend"
	"seedfast/docshell/internal/domain"
)

// Method names recorded by Client.Calls.
const (
	Init            = "Init"
	Connect         = "Connect"
	DatabaseNames   = "DatabaseNames"
	CollectionNames = "CollectionNames"
	Find            = "Find"
	Run             = "Run"
	Close           = "Close"
)

// Client is a fake backend. Configure the exported fields before handing it to a worker.
type Client struct {
	Address     string
	Databases   []string
	Collections map[string][]string
	// Documents keyed by "db.collection".
	Documents map[string][]backend.Document
	Results   []backend.Result

	mu      sync.Mutex
	calls   []string
	errs    map[string]error
	panics  map[string]any
	gates   map[string]chan struct{}
	entered chan string
	closed  bool
	creds   []backend.Credentials
}

func New() *Client {
	return &Client{
		Address:     "fake:27017",
		Collections: make(map[string][]string),
		Documents:   make(map[string][]backend.Document),
		errs:        make(map[string]error),
		panics:      make(map[string]any),
		gates:       make(map[string]chan struct{}),
		entered:     make(chan string, 256),
	}
}

// Factory returns a backend.Factory that always yields c.
func (c *Client) Factory() backend.Factory {
	return func(domain.Server) (backend.Client, error) { return c, nil }
}

// Fail makes every later call of method return err.
func (c *Client) Fail(method string, err error) {
	c.mu.Lock()
	c.errs[method] = err
	c.mu.Unlock()
}

// Panic makes every later call of method panic with v.
func (c *Client) Panic(method string, v any) {
	c.mu.Lock()
	c.panics[method] = v
	c.mu.Unlock()
}

// Hold blocks calls of method until the returned release func is called.
// A held call still returns early when its context ends.
func (c *Client) Hold(method string) (release func()) {
	gate := make(chan struct{})
	c.mu.Lock()
	c.gates[method] = gate
	c.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			if c.gates[method] == gate {
				delete(c.gates, method)
			}
			c.mu.Unlock()
			close(gate)
		})
	}
}

// Entered receives the method name each time a call starts.
func (c *Client) Entered() <-chan string { return c.entered }

// Calls returns the methods invoked so far, in order.
func (c *Client) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

// Credentials returns the credentials passed to Connect, in order.
func (c *Client) Credentials() []backend.Credentials {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]backend.Credentials(nil), c.creds...)
}

func (c *Client) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Client) enter(ctx context.Context, method string) error {
	c.mu.Lock()
	c.calls = append(c.calls, method)
	gate := c.gates[method]
	err := c.errs[method]
	p, shouldPanic := c.panics[method]
	c.mu.Unlock()

	select {
	case c.entered <- method:
	default:
	}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if shouldPanic {
		panic(p)
	}
	return err
}

func (c *Client) Init(ctx context.Context) error {
	return c.enter(ctx, Init)
}

func (c *Client) Connect(ctx context.Context, creds backend.Credentials) (string, error) {
	c.mu.Lock()
	c.creds = append(c.creds, creds)
	c.mu.Unlock()
	if err := c.enter(ctx, Connect); err != nil {
		return "", err
	}
	return c.Address, nil
}

func (c *Client) DatabaseNames(ctx context.Context) ([]string, error) {
	if err := c.enter(ctx, DatabaseNames); err != nil {
		return nil, err
	}
	return append([]string(nil), c.Databases...), nil
}

func (c *Client) CollectionNames(ctx context.Context, database string) ([]string, error) {
	if err := c.enter(ctx, CollectionNames); err != nil {
		return nil, err
	}
	return append([]string(nil), c.Collections[database]...), nil
}

func (c *Client) Find(ctx context.Context, q backend.Query) ([]backend.Document, error) {
	if err := c.enter(ctx, Find); err != nil {
		return nil, err
	}
	return backend.Page(c.Documents[q.Namespace.String()], q.Take, q.Skip), nil
}

func (c *Client) Run(ctx context.Context, s backend.Script) ([]backend.Result, error) {
	if err := c.enter(ctx, Run); err != nil {
		return nil, err
	}
	return append([]backend.Result(nil), c.Results...), nil
}

func (c *Client) Close(ctx context.Context) error {
	err := c.enter(ctx, Close)
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return err
}
