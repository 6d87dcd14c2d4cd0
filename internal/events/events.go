// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package events defines the closed catalog of messages exchanged between the
// foreground loop and the shell workers.
//
// Every catalog entry is its own struct implementing Message. Requests carry
// operation parameters, responses carry an Outcome (payload or error, never
// both), and notifications describe lifecycle transitions without an error.
// All messages share an Envelope with the sender token, the target shell and
// the request id. Messages are values: build them with the New* constructors
// and never modify them after publishing.
//
// The catalog is closed and versioned: CatalogVersion changes whenever an
// entry is added, removed or changes its fields.
package events

import (
	"sync/atomic"

	"seedfast/docshell/internal/domain"
	"seedfast/docshell/internal/errors"
	"seedfast/docshell/internal/guard"
)

// CatalogVersion identifies the current set of catalog entries.
const CatalogVersion = 1

// Kind tags a catalog entry.
type Kind string

const (
	KindInitRequest                Kind = "InitRequest"
	KindFinalizeRequest            Kind = "FinalizeRequest"
	KindEstablishConnectionRequest Kind = "EstablishConnectionRequest"
	KindLoadDatabaseNamesRequest   Kind = "LoadDatabaseNamesRequest"
	KindLoadCollectionNamesRequest Kind = "LoadCollectionNamesRequest"
	KindExecuteQueryRequest        Kind = "ExecuteQueryRequest"
	KindExecuteScriptRequest       Kind = "ExecuteScriptRequest"

	KindInitResponse                Kind = "InitResponse"
	KindFinalizeResponse            Kind = "FinalizeResponse"
	KindEstablishConnectionResponse Kind = "EstablishConnectionResponse"
	KindLoadDatabaseNamesResponse   Kind = "LoadDatabaseNamesResponse"
	KindLoadCollectionNamesResponse Kind = "LoadCollectionNamesResponse"
	KindExecuteQueryResponse        Kind = "ExecuteQueryResponse"
	KindExecuteScriptResponse       Kind = "ExecuteScriptResponse"

	KindConnecting            Kind = "Connecting"
	KindConnectionEstablished Kind = "ConnectionEstablished"
	KindConnectionFailed      Kind = "ConnectionFailed"
	KindOpeningShell          Kind = "OpeningShell"
	KindDatabaseListLoaded    Kind = "DatabaseListLoaded"
	KindDocumentListLoaded    Kind = "DocumentListLoaded"
	KindScriptExecuted        Kind = "ScriptExecuted"
	KindSomethingHappened     Kind = "SomethingHappened"
)

// request kind -> response kind
var responseKinds = map[Kind]Kind{
	KindInitRequest:                KindInitResponse,
	KindFinalizeRequest:            KindFinalizeResponse,
	KindEstablishConnectionRequest: KindEstablishConnectionResponse,
	KindLoadDatabaseNamesRequest:   KindLoadDatabaseNamesResponse,
	KindLoadCollectionNamesRequest: KindLoadCollectionNamesResponse,
	KindExecuteQueryRequest:        KindExecuteQueryResponse,
	KindExecuteScriptRequest:       KindExecuteScriptResponse,
}

var notificationKinds = []Kind{
	KindConnecting,
	KindConnectionEstablished,
	KindConnectionFailed,
	KindOpeningShell,
	KindDatabaseListLoaded,
	KindDocumentListLoaded,
	KindScriptExecuted,
	KindSomethingHappened,
}

var requestOrder = []Kind{
	KindInitRequest,
	KindFinalizeRequest,
	KindEstablishConnectionRequest,
	KindLoadDatabaseNamesRequest,
	KindLoadCollectionNamesRequest,
	KindExecuteQueryRequest,
	KindExecuteScriptRequest,
}

// RequestKinds lists every request kind in catalog order.
func RequestKinds() []Kind { return append([]Kind(nil), requestOrder...) }

// ResponseKinds lists every response kind in catalog order.
func ResponseKinds() []Kind {
	out := make([]Kind, 0, len(requestOrder))
	for _, k := range requestOrder {
		out = append(out, responseKinds[k])
	}
	return out
}

// NotificationKinds lists every notification kind.
func NotificationKinds() []Kind { return append([]Kind(nil), notificationKinds...) }

func IsRequest(k Kind) bool {
	_, ok := responseKinds[k]
	return ok
}

func IsResponse(k Kind) bool {
	for _, r := range responseKinds {
		if r == k {
			return true
		}
	}
	return false
}

func IsNotification(k Kind) bool {
	for _, n := range notificationKinds {
		if n == k {
			return true
		}
	}
	return false
}

// ResponseKind returns the response kind answering request kind k.
func ResponseKind(k Kind) (Kind, bool) {
	r, ok := responseKinds[k]
	return r, ok
}

// RequestID is unique within the process and increases with every request built.
type RequestID uint64

var lastRequestID atomic.Uint64

func nextRequestID() RequestID { return RequestID(lastRequestID.Add(1)) }

// Envelope is shared by every message. Sender is an identity token and keeps
// nothing alive; Shell and ID are zero on notifications that are not tied to one.
type Envelope struct {
	Sender guard.Token
	Shell  domain.ShellID
	ID     RequestID
}

func newEnvelope(sender guard.Token, shell domain.ShellID) Envelope {
	return Envelope{Sender: sender, Shell: shell, ID: nextRequestID()}
}

// Message is implemented only by the catalog types in this package.
type Message interface {
	Kind() Kind
	Envelope() Envelope
	isMessage()
}

// Request is a Message that expects exactly one response.
type Request interface {
	Message
	isRequest()
}

// Response is a Message that answers a Request.
type Response interface {
	Message
	Failed() bool
	Err() errors.E
}

// Failure returns the error carried by m when m is a failed response.
func Failure(m Message) (errors.E, bool) {
	r, ok := m.(Response)
	if !ok || !r.Failed() {
		return errors.E{}, false
	}
	return r.Err(), true
}
