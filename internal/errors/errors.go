// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package errors defines the structured error value attached to responses.
// Every backend fault is converted into an E at the worker boundary, so code on
// the foreground side only ever inspects a Kind and a human-readable reason and
// never handles a raw driver error.
//
// The package also classifies arbitrary Go errors (network, DNS, TLS, deadline)
// into kinds, which lets backend adapters stay thin.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// None is the zero Kind and means "no error".
	None Kind = ""
	// ConnectionFailed indicates the backend could not be reached or refused the credentials.
	ConnectionFailed Kind = "connection_failed"
	// Timeout indicates a backend call exceeded its deadline.
	Timeout Kind = "timeout"
	// DriverError indicates a fault reported by the backend during a valid connection.
	DriverError Kind = "driver_error"
	// InvalidArgument indicates malformed request parameters.
	InvalidArgument Kind = "invalid_argument"
	// Cancelled is reserved; nothing in the dispatch core produces it.
	Cancelled Kind = "cancelled"
)

func (k Kind) String() string {
	if k == None {
		return "none"
	}
	return string(k)
}

// E describes a failure by kind and reason. It is a value type and is copied,
// never shared, between goroutines.
type E struct {
	Kind   Kind
	Reason string
}

func (e E) Error() string {
	if e.Reason == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

// IsZero reports whether e represents "no error".
func (e E) IsZero() bool { return e.Kind == None }

func New(kind Kind, reason string) E { return E{Kind: kind, Reason: reason} }

func Newf(kind Kind, format string, args ...any) E {
	return E{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// Wrap flattens err into the reason of a new E. The cause itself is not kept.
func Wrap(kind Kind, msg string, err error) E {
	if err == nil {
		return E{Kind: kind, Reason: msg}
	}
	if msg == "" {
		return E{Kind: kind, Reason: err.Error()}
	}
	return E{Kind: kind, Reason: msg + ": " + err.Error()}
}

// As reports whether err is, or wraps, an E.
func As(err error) (E, bool) {
	var e E
	if stderrors.As(err, &e) {
		return e, true
	}
	var pe *E
	if stderrors.As(err, &pe) && pe != nil {
		return *pe, true
	}
	return E{}, false
}
