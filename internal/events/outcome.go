// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package events

import "seedfast/docshell/internal/errors"

// Empty is the payload of responses that carry no data.
type Empty = struct{}

// Outcome holds either a payload or an error. The zero Outcome is a success
// with the zero payload.
type Outcome[T any] struct {
	value  T
	err    errors.E
	failed bool
}

// Ok builds a successful outcome.
func Ok[T any](v T) Outcome[T] {
	return Outcome[T]{value: v}
}

// Fail builds a failed outcome. A failure must have a kind, so an error with
// Kind None is recorded as DriverError.
func Fail[T any](e errors.E) Outcome[T] {
	if e.Kind == errors.None {
		e.Kind = errors.DriverError
	}
	return Outcome[T]{err: e, failed: true}
}

// Failed reports whether the outcome carries an error.
func (o Outcome[T]) Failed() bool { return o.failed }

// Err returns the error, or the zero E on success.
func (o Outcome[T]) Err() errors.E { return o.err }

// Value returns the payload and true on success, or the zero value and false.
func (o Outcome[T]) Value() (T, bool) {
	if o.failed {
		var zero T
		return zero, false
	}
	return o.value, true
}
