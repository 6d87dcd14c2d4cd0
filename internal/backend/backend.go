// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package backend defines the blocking document-database client that workers drive.
// Implementations live in sub-packages (mongo, postgres); the dispatch core only
// depends on the Client interface and never calls a client from more than one
// goroutine at a time.
package backend

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"seedfast/docshell/internal/domain"
	"seedfast/docshell/internal/errors"
)

// Document is a raw BSON document as returned by the backend.
type Document = bson.Raw

// Credentials are supplied per connection attempt and never stored in the arena.
type Credentials struct {
	Database string
	User     string
	Password string
}

// Query selects a page of documents from one collection.
// Take 0 means no limit.
type Query struct {
	Namespace Namespace
	Take      int
	Skip      int
}

// Script is free-form backend text executed against a database.
type Script struct {
	Database string
	Text     string
	Take     int
	Skip     int
}

// Result is the outcome of one statement of a script.
type Result struct {
	Statement string
	Documents []Document
	Affected  int64
	Message   string
}

// Client is a blocking database client. Every method may block on network I/O
// and must honour ctx deadlines.
type Client interface {
	Init(ctx context.Context) error
	// Connect authenticates and returns the address actually connected to.
	Connect(ctx context.Context, creds Credentials) (string, error)
	DatabaseNames(ctx context.Context) ([]string, error)
	CollectionNames(ctx context.Context, database string) ([]string, error)
	Find(ctx context.Context, q Query) ([]Document, error)
	Run(ctx context.Context, s Script) ([]Result, error)
	Close(ctx context.Context) error
}

// Factory builds an unconnected client for a server.
type Factory func(server domain.Server) (Client, error)

var (
	ErrAuthFailed       = errors.New(errors.ConnectionFailed, "authentication failed")
	ErrNotConnected     = errors.New(errors.ConnectionFailed, "not connected")
	ErrInvalidNamespace = errors.New(errors.InvalidArgument, "invalid namespace")
	ErrClosed           = errors.New(errors.DriverError, "client closed")
)

// Namespace is the "database.collection" address of a query target.
type Namespace struct {
	Database   string
	Collection string
}

// ParseNamespace splits s at the first dot. Collection names may contain dots;
// database names may not.
func ParseNamespace(s string) (Namespace, error) {
	db, coll, ok := strings.Cut(strings.TrimSpace(s), ".")
	if !ok || db == "" || coll == "" {
		return Namespace{}, errors.Newf(errors.InvalidArgument, "invalid namespace %q: expected database.collection", s)
	}
	if strings.ContainsAny(db, ` /\"$`) {
		return Namespace{}, errors.Newf(errors.InvalidArgument, "invalid database name %q", db)
	}
	if strings.HasPrefix(coll, "$") || strings.HasSuffix(coll, ".") {
		return Namespace{}, errors.Newf(errors.InvalidArgument, "invalid collection name %q", coll)
	}
	return Namespace{Database: db, Collection: coll}, nil
}

func (n Namespace) String() string { return n.Database + "." + n.Collection }

// Page applies skip and take to an in-memory slice. A negative skip or take is
// treated as zero.
func Page[T any](items []T, take, skip int) []T {
	if skip < 0 {
		skip = 0
	}
	if skip >= len(items) {
		return nil
	}
	items = items[skip:]
	if take > 0 && take < len(items) {
		items = items[:take]
	}
	return items
}
