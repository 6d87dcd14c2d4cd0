// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package events

import (
	"seedfast/docshell/internal/backend"
	"seedfast/docshell/internal/domain"
)

// Notifications carry no error. A ConnectionFailed reason is text for display.

type Connecting struct {
	Env    Envelope
	Server domain.ServerID
}

func NewConnecting(env Envelope, server domain.ServerID) Connecting {
	return Connecting{Env: env, Server: server}
}

func (Connecting) Kind() Kind           { return KindConnecting }
func (n Connecting) Envelope() Envelope { return n.Env }
func (Connecting) isMessage()           {}

type ConnectionEstablished struct {
	Env     Envelope
	Server  domain.ServerID
	Address string
}

func NewConnectionEstablished(env Envelope, server domain.ServerID, address string) ConnectionEstablished {
	return ConnectionEstablished{Env: env, Server: server, Address: address}
}

func (ConnectionEstablished) Kind() Kind           { return KindConnectionEstablished }
func (n ConnectionEstablished) Envelope() Envelope { return n.Env }
func (ConnectionEstablished) isMessage()           {}

type ConnectionFailed struct {
	Env    Envelope
	Server domain.ServerID
	Reason string
}

func NewConnectionFailed(env Envelope, server domain.ServerID, reason string) ConnectionFailed {
	return ConnectionFailed{Env: env, Server: server, Reason: reason}
}

func (ConnectionFailed) Kind() Kind           { return KindConnectionFailed }
func (n ConnectionFailed) Envelope() Envelope { return n.Env }
func (ConnectionFailed) isMessage()           {}

type OpeningShell struct {
	Env           Envelope
	Server        domain.ServerID
	InitialScript string
}

func NewOpeningShell(env Envelope, server domain.ServerID, initialScript string) OpeningShell {
	return OpeningShell{Env: env, Server: server, InitialScript: initialScript}
}

func (OpeningShell) Kind() Kind           { return KindOpeningShell }
func (n OpeningShell) Envelope() Envelope { return n.Env }
func (OpeningShell) isMessage()           {}

type DatabaseListLoaded struct {
	Env       Envelope
	Server    domain.ServerID
	Databases []domain.DatabaseID
}

func NewDatabaseListLoaded(env Envelope, server domain.ServerID, dbs []domain.DatabaseID) DatabaseListLoaded {
	return DatabaseListLoaded{Env: env, Server: server, Databases: dbs}
}

func (DatabaseListLoaded) Kind() Kind           { return KindDatabaseListLoaded }
func (n DatabaseListLoaded) Envelope() Envelope { return n.Env }
func (DatabaseListLoaded) isMessage()           {}

type DocumentListLoaded struct {
	Env       Envelope
	Namespace string
	Page      Page
	Documents []domain.DocumentID
}

func NewDocumentListLoaded(env Envelope, namespace string, page Page, docs []domain.DocumentID) DocumentListLoaded {
	return DocumentListLoaded{Env: env, Namespace: namespace, Page: page, Documents: docs}
}

func (DocumentListLoaded) Kind() Kind           { return KindDocumentListLoaded }
func (n DocumentListLoaded) Envelope() Envelope { return n.Env }
func (DocumentListLoaded) isMessage()           {}

type ScriptExecuted struct {
	Env     Envelope
	Results []backend.Result
}

func NewScriptExecuted(env Envelope, results []backend.Result) ScriptExecuted {
	return ScriptExecuted{Env: env, Results: results}
}

func (ScriptExecuted) Kind() Kind           { return KindScriptExecuted }
func (n ScriptExecuted) Envelope() Envelope { return n.Env }
func (ScriptExecuted) isMessage()           {}

// SomethingHappened is a free-form diagnostic.
type SomethingHappened struct {
	Env  Envelope
	Text string
}

func NewSomethingHappened(env Envelope, text string) SomethingHappened {
	return SomethingHappened{Env: env, Text: text}
}

func (SomethingHappened) Kind() Kind           { return KindSomethingHappened }
func (n SomethingHappened) Envelope() Envelope { return n.Env }
func (SomethingHappened) isMessage()           {}
