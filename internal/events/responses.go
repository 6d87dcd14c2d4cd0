// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package events

import "seedfast/docshell/internal/backend"

// Each response copies the envelope of the request it answers.

type InitResponse struct {
	Env Envelope
	Outcome[Empty]
}

func NewInitResponse(req InitRequest, o Outcome[Empty]) InitResponse {
	return InitResponse{Env: req.Env, Outcome: o}
}

func (InitResponse) Kind() Kind           { return KindInitResponse }
func (r InitResponse) Envelope() Envelope { return r.Env }
func (InitResponse) isMessage()           {}

type FinalizeResponse struct {
	Env Envelope
	Outcome[Empty]
}

func NewFinalizeResponse(req FinalizeRequest, o Outcome[Empty]) FinalizeResponse {
	return FinalizeResponse{Env: req.Env, Outcome: o}
}

func (FinalizeResponse) Kind() Kind           { return KindFinalizeResponse }
func (r FinalizeResponse) Envelope() Envelope { return r.Env }
func (FinalizeResponse) isMessage()           {}

// EstablishConnectionResponse carries the address connected to.
type EstablishConnectionResponse struct {
	Env Envelope
	Outcome[string]
}

func NewEstablishConnectionResponse(req EstablishConnectionRequest, o Outcome[string]) EstablishConnectionResponse {
	return EstablishConnectionResponse{Env: req.Env, Outcome: o}
}

func (EstablishConnectionResponse) Kind() Kind           { return KindEstablishConnectionResponse }
func (r EstablishConnectionResponse) Envelope() Envelope { return r.Env }
func (EstablishConnectionResponse) isMessage()           {}

type LoadDatabaseNamesResponse struct {
	Env Envelope
	Outcome[[]string]
}

func NewLoadDatabaseNamesResponse(req LoadDatabaseNamesRequest, o Outcome[[]string]) LoadDatabaseNamesResponse {
	return LoadDatabaseNamesResponse{Env: req.Env, Outcome: o}
}

func (LoadDatabaseNamesResponse) Kind() Kind           { return KindLoadDatabaseNamesResponse }
func (r LoadDatabaseNamesResponse) Envelope() Envelope { return r.Env }
func (LoadDatabaseNamesResponse) isMessage()           {}

// CollectionNames is the payload of LoadCollectionNamesResponse.
type CollectionNames struct {
	Database string
	Names    []string
}

type LoadCollectionNamesResponse struct {
	Env Envelope
	Outcome[CollectionNames]
}

func NewLoadCollectionNamesResponse(req LoadCollectionNamesRequest, o Outcome[CollectionNames]) LoadCollectionNamesResponse {
	return LoadCollectionNamesResponse{Env: req.Env, Outcome: o}
}

func (LoadCollectionNamesResponse) Kind() Kind           { return KindLoadCollectionNamesResponse }
func (r LoadCollectionNamesResponse) Envelope() Envelope { return r.Env }
func (LoadCollectionNamesResponse) isMessage()           {}

// ExecuteQueryResponse echoes the namespace and page of its request.
type ExecuteQueryResponse struct {
	Env       Envelope
	Namespace string
	Page      Page
	Outcome[[]backend.Document]
}

func NewExecuteQueryResponse(req ExecuteQueryRequest, o Outcome[[]backend.Document]) ExecuteQueryResponse {
	return ExecuteQueryResponse{Env: req.Env, Namespace: req.Namespace, Page: req.Page, Outcome: o}
}

func (ExecuteQueryResponse) Kind() Kind           { return KindExecuteQueryResponse }
func (r ExecuteQueryResponse) Envelope() Envelope { return r.Env }
func (ExecuteQueryResponse) isMessage()           {}

type ExecuteScriptResponse struct {
	Env  Envelope
	Page Page
	Outcome[[]backend.Result]
}

func NewExecuteScriptResponse(req ExecuteScriptRequest, o Outcome[[]backend.Result]) ExecuteScriptResponse {
	return ExecuteScriptResponse{Env: req.Env, Page: req.Page, Outcome: o}
}

func (ExecuteScriptResponse) Kind() Kind           { return KindExecuteScriptResponse }
func (r ExecuteScriptResponse) Envelope() Envelope { return r.Env }
func (ExecuteScriptResponse) isMessage()           {}
