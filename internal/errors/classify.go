// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package errors

import (
	"context"
	stderrors "errors"
	"net"
	"strings"
	"syscall"
)

// Classify maps err to a Kind. Errors that match no known category are DriverError.
func Classify(err error) Kind {
	return FromError(err, DriverError).Kind
}

// FromError converts err into an E. Errors that already carry an E keep it;
// recognised network and deadline failures get their own kind; anything else
// gets fallback.
func FromError(err error, fallback Kind) E {
	if err == nil {
		return E{}
	}
	if e, ok := As(err); ok {
		return e
	}
	if kind, ok := classify(err); ok {
		return E{Kind: kind, Reason: err.Error()}
	}
	if fallback == None {
		fallback = DriverError
	}
	return E{Kind: fallback, Reason: err.Error()}
}

func classify(err error) (Kind, bool) {
	switch {
	case isTimeoutError(err):
		return Timeout, true
	case isDNSError(err), isConnectionRefusedError(err), isSSLError(err), isNetworkError(err):
		return ConnectionFailed, true
	}
	return None, false
}

// isTimeoutError checks if the error is a timeout error.
func isTimeoutError(err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded")
}

// isDNSError checks if the error is a DNS resolution error.
func isDNSError(err error) bool {
	var dnsErr *net.DNSError
	return stderrors.As(err, &dnsErr)
}

// isConnectionRefusedError checks if the error is a connection refused error.
func isConnectionRefusedError(err error) bool {
	var opErr *net.OpError
	if stderrors.As(err, &opErr) && stderrors.Is(opErr.Err, syscall.ECONNREFUSED) {
		return true
	}
	if stderrors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "connection refused")
}

// isSSLError checks if the error is an SSL/TLS error.
func isSSLError(err error) bool {
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "tls:") ||
		strings.Contains(errStr, "x509:") ||
		strings.Contains(errStr, "certificate")
}

// isNetworkError catches the remaining socket-level failures.
func isNetworkError(err error) bool {
	var opErr *net.OpError
	if stderrors.As(err, &opErr) {
		return true
	}
	return stderrors.Is(err, syscall.ECONNRESET) || stderrors.Is(err, syscall.EPIPE)
}
