// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package dsn parses and normalizes database connection strings.
// It detects the backend from the scheme, tolerates unescaped special
// characters in passwords, and splits a connection string into the
// credential-free server address and the credentials sent with
// EstablishConnection.
package dsn

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// DBType represents the type of database
type DBType string

const (
	DBTypeMongoDB    DBType = "mongodb"
	DBTypePostgreSQL DBType = "postgresql"
	DBTypeUnknown    DBType = "unknown"
)

// DSNInfo contains parsed information from a DSN string
type DSNInfo struct {
	Type   DBType
	Scheme string
	// Host is a single host or, for MongoDB, a comma-separated seed list.
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Params   map[string]string
	Original string
}

// String returns the DSN as it was given.
func (d *DSNInfo) String() string {
	return d.Original
}

// Address returns host[:port].
func (d *DSNInfo) Address() string {
	if d.Port == "" {
		return d.Host
	}
	return d.Host + ":" + d.Port
}

// Redacted returns the normalized connection string without user and password.
func (d *DSNInfo) Redacted() string {
	return d.build(false)
}

// AuthDatabase is the database credentials are checked against: authSource
// for MongoDB when given, then the path database, then "admin".
func (d *DSNInfo) AuthDatabase() string {
	if d.Type == DBTypeMongoDB {
		if src := d.Params["authSource"]; src != "" {
			return src
		}
		if d.Database == "" {
			return "admin"
		}
	}
	return d.Database
}

func (d *DSNInfo) build(withCredentials bool) string {
	var b strings.Builder
	b.WriteString(d.Scheme)
	b.WriteString("://")

	if withCredentials && d.User != "" {
		b.WriteString(escapeUserinfo(d.User))
		if d.Password != "" {
			b.WriteString(":")
			b.WriteString(escapeUserinfo(d.Password))
		}
		b.WriteString("@")
	}

	b.WriteString(d.Address())
	b.WriteString("/")
	b.WriteString(d.Database)

	if len(d.Params) > 0 {
		keys := make([]string, 0, len(d.Params))
		for k := range d.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for i, k := range keys {
			if i == 0 {
				b.WriteString("?")
			} else {
				b.WriteString("&")
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteString("=")
			b.WriteString(url.QueryEscape(d.Params[k]))
		}
	}
	return b.String()
}

// Resolver is an interface for database-specific DSN resolution
type Resolver interface {
	// Parse parses a DSN string and returns normalized DSN info
	Parse(dsn string) (*DSNInfo, error)

	// Normalize converts DSN info to a properly formatted connection string
	Normalize(info *DSNInfo) (string, error)

	// Validate checks if the DSN is valid for the database type
	Validate(dsn string) error
}

// ParseError represents an error that occurred during DSN parsing
type ParseError struct {
	DSN    string
	Reason string
	Hint   string
}

func (e *ParseError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("invalid DSN format: %s\nHint: %s", e.Reason, e.Hint)
	}
	return fmt.Sprintf("invalid DSN format: %s", e.Reason)
}

// NewParseError creates a new ParseError
func NewParseError(dsn, reason, hint string) *ParseError {
	return &ParseError{
		DSN:    dsn,
		Reason: reason,
		Hint:   hint,
	}
}

// escapeUserinfo percent-encodes spaces as %20 so the result survives
// PathUnescape on the way back in.
func escapeUserinfo(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
