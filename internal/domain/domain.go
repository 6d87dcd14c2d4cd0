// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package domain holds the records the foreground and the workers both refer to:
// servers, shells, databases, collections and documents. Records live in an
// Arena and are addressed by stable string identifiers; messages crossing
// goroutines carry identifiers, never pointers into the arena.
package domain

import (
	"errors"

	"github.com/google/uuid"
)

// ServerID identifies a configured backend server.
type ServerID string

// ShellID identifies a logical session bound to one backend connection.
type ShellID string

// DatabaseID identifies a database discovered on a server.
type DatabaseID string

// CollectionID identifies a collection discovered in a database.
type CollectionID string

// DocumentID identifies a document loaded into a shell's result view.
type DocumentID string

// ErrUnknownServer is returned when a shell is opened against a server the arena does not hold.
var ErrUnknownServer = errors.New("unknown server")

// Server is a connection target. URI never contains credentials; those travel
// in the EstablishConnection request.
type Server struct {
	ID   ServerID
	Name string
	URI  string
}

// Shell is a session on a server, optionally scoped to a default database.
type Shell struct {
	ID            ShellID
	Server        ServerID
	Database      string
	InitialScript string
}

// Database is a database name discovered on a server.
type Database struct {
	ID     DatabaseID
	Server ServerID
	Name   string
}

// Collection is a collection name discovered in a database.
type Collection struct {
	ID       CollectionID
	Database DatabaseID
	Name     string
}

// Document is a raw BSON document loaded by a query.
type Document struct {
	ID        DocumentID
	Shell     ShellID
	Namespace string
	Raw       []byte
}

func newID() string { return uuid.NewString() }
