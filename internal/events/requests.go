// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package events

import (
	"seedfast/docshell/internal/domain"
	"seedfast/docshell/internal/guard"
)

type InitRequest struct{ Env Envelope }

func NewInitRequest(sender guard.Token, shell domain.ShellID) InitRequest {
	return InitRequest{Env: newEnvelope(sender, shell)}
}

func (InitRequest) Kind() Kind           { return KindInitRequest }
func (r InitRequest) Envelope() Envelope { return r.Env }
func (InitRequest) isMessage()           {}
func (InitRequest) isRequest()           {}

// FinalizeRequest closes the shell's backend client. Nothing queued after it runs.
type FinalizeRequest struct{ Env Envelope }

func NewFinalizeRequest(sender guard.Token, shell domain.ShellID) FinalizeRequest {
	return FinalizeRequest{Env: newEnvelope(sender, shell)}
}

func (FinalizeRequest) Kind() Kind           { return KindFinalizeRequest }
func (r FinalizeRequest) Envelope() Envelope { return r.Env }
func (FinalizeRequest) isMessage()           {}
func (FinalizeRequest) isRequest()           {}

type EstablishConnectionRequest struct {
	Env          Envelope
	DatabaseName string
	UserName     string
	UserPassword string
}

func NewEstablishConnectionRequest(sender guard.Token, shell domain.ShellID, database, user, password string) EstablishConnectionRequest {
	return EstablishConnectionRequest{
		Env:          newEnvelope(sender, shell),
		DatabaseName: database,
		UserName:     user,
		UserPassword: password,
	}
}

func (EstablishConnectionRequest) Kind() Kind           { return KindEstablishConnectionRequest }
func (r EstablishConnectionRequest) Envelope() Envelope { return r.Env }
func (EstablishConnectionRequest) isMessage()           {}
func (EstablishConnectionRequest) isRequest()           {}

type LoadDatabaseNamesRequest struct{ Env Envelope }

func NewLoadDatabaseNamesRequest(sender guard.Token, shell domain.ShellID) LoadDatabaseNamesRequest {
	return LoadDatabaseNamesRequest{Env: newEnvelope(sender, shell)}
}

func (LoadDatabaseNamesRequest) Kind() Kind           { return KindLoadDatabaseNamesRequest }
func (r LoadDatabaseNamesRequest) Envelope() Envelope { return r.Env }
func (LoadDatabaseNamesRequest) isMessage()           {}
func (LoadDatabaseNamesRequest) isRequest()           {}

type LoadCollectionNamesRequest struct {
	Env          Envelope
	DatabaseName string
}

func NewLoadCollectionNamesRequest(sender guard.Token, shell domain.ShellID, database string) LoadCollectionNamesRequest {
	return LoadCollectionNamesRequest{Env: newEnvelope(sender, shell), DatabaseName: database}
}

func (LoadCollectionNamesRequest) Kind() Kind           { return KindLoadCollectionNamesRequest }
func (r LoadCollectionNamesRequest) Envelope() Envelope { return r.Env }
func (LoadCollectionNamesRequest) isMessage()           {}
func (LoadCollectionNamesRequest) isRequest()           {}

// ExecuteQueryRequest loads a page of documents from Namespace ("db.collection").
type ExecuteQueryRequest struct {
	Env       Envelope
	Namespace string
	Page      Page
}

func NewExecuteQueryRequest(sender guard.Token, shell domain.ShellID, namespace string, take, skip int) ExecuteQueryRequest {
	return ExecuteQueryRequest{
		Env:       newEnvelope(sender, shell),
		Namespace: namespace,
		Page:      Page{Take: take, Skip: skip},
	}
}

func (ExecuteQueryRequest) Kind() Kind           { return KindExecuteQueryRequest }
func (r ExecuteQueryRequest) Envelope() Envelope { return r.Env }
func (ExecuteQueryRequest) isMessage()           {}
func (ExecuteQueryRequest) isRequest()           {}

type ExecuteScriptRequest struct {
	Env          Envelope
	Script       string
	DatabaseName string
	Page         Page
}

func NewExecuteScriptRequest(sender guard.Token, shell domain.ShellID, script, database string, take, skip int) ExecuteScriptRequest {
	return ExecuteScriptRequest{
		Env:          newEnvelope(sender, shell),
		Script:       script,
		DatabaseName: database,
		Page:         Page{Take: take, Skip: skip},
	}
}

func (ExecuteScriptRequest) Kind() Kind           { return KindExecuteScriptRequest }
func (r ExecuteScriptRequest) Envelope() Envelope { return r.Env }
func (ExecuteScriptRequest) isMessage()           {}
func (ExecuteScriptRequest) isRequest()           {}
