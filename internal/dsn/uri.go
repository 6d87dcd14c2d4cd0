// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package dsn

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var rePort = regexp.MustCompile(`^\d+$`)

// uriFormat describes one URI-style connection string family.
type uriFormat struct {
	dbType          DBType
	schemes         []string
	defaultPort     string
	requireUser     bool
	requireDatabase bool
	hostList        bool
	example         string
}

// parse splits scheme://[user[:password]@]host[:port][/database][?params].
// The last @ separates credentials from the host, so passwords may contain
// @, : and other characters without being escaped.
func (s uriFormat) parse(dsn string) (*DSNInfo, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, NewParseError(dsn, "empty DSN", "provide a connection string like "+s.example)
	}

	scheme, remainder, ok := s.cutScheme(dsn)
	if !ok {
		return nil, NewParseError(dsn, "missing or invalid scheme", "use "+strings.Join(s.schemes, ":// or ")+"://")
	}

	info := &DSNInfo{
		Type:     s.dbType,
		Scheme:   scheme,
		Params:   make(map[string]string),
		Original: dsn,
	}

	if at := strings.LastIndex(remainder, "@"); at >= 0 {
		user, pass, _ := strings.Cut(remainder[:at], ":")
		info.User = unescape(user)
		info.Password = unescape(pass)
		remainder = remainder[at+1:]
	}

	hostEnd := strings.IndexAny(remainder, "/?")
	hostPart := remainder
	rest := ""
	if hostEnd >= 0 {
		hostPart = remainder[:hostEnd]
		rest = remainder[hostEnd:]
	}

	if strings.HasPrefix(rest, "/") {
		rest = rest[1:]
		db, query, _ := strings.Cut(rest, "?")
		info.Database = strings.TrimSpace(unescape(db))
		rest = query
	} else {
		rest = strings.TrimPrefix(rest, "?")
	}
	if rest != "" {
		parseParams(rest, info.Params)
	}

	if err := s.splitHost(dsn, hostPart, info); err != nil {
		return nil, err
	}
	if err := s.check(dsn, info); err != nil {
		return nil, err
	}
	return info, nil
}

func (s uriFormat) cutScheme(dsn string) (scheme, remainder string, ok bool) {
	lower := strings.ToLower(dsn)
	// longest scheme first so mongodb+srv wins over mongodb
	best := ""
	for _, sc := range s.schemes {
		if strings.HasPrefix(lower, sc+"://") && len(sc) > len(best) {
			best = sc
		}
	}
	if best == "" {
		return "", "", false
	}
	return best, dsn[len(best)+3:], true
}

func (s uriFormat) splitHost(dsn, hostPart string, info *DSNInfo) error {
	if strings.Contains(hostPart, ",") {
		if !s.hostList {
			return NewParseError(dsn, "multiple hosts are not supported", "connect to a single host")
		}
		info.Host = hostPart
		return nil
	}

	host, port := hostPart, ""
	if strings.HasPrefix(host, "[") {
		// [ipv6]:port
		if end := strings.Index(host, "]"); end >= 0 {
			port = strings.TrimPrefix(host[end+1:], ":")
			host = host[:end+1]
		}
	} else if i := strings.LastIndex(host, ":"); i >= 0 {
		host, port = host[:i], host[i+1:]
	}

	info.Host = strings.TrimSpace(host)
	info.Port = port
	if info.Scheme == "mongodb+srv" {
		if port != "" {
			return NewParseError(dsn, "mongodb+srv URIs cannot specify a port", "remove the port or use mongodb://")
		}
		return nil
	}
	if info.Port == "" {
		info.Port = s.defaultPort
	}
	return nil
}

func (s uriFormat) check(dsn string, info *DSNInfo) error {
	if info.Host == "" {
		return NewParseError(dsn, "missing host", "provide host in format "+s.example)
	}
	if s.requireUser && strings.TrimSpace(info.User) == "" {
		return NewParseError(dsn, "missing username", "provide username in format "+s.example)
	}
	if s.requireDatabase && info.Database == "" {
		return NewParseError(dsn, "missing database name", "provide database in format "+s.example)
	}
	if info.Port != "" && !rePort.MatchString(info.Port) {
		return NewParseError(dsn, fmt.Sprintf("invalid port number: %s", info.Port), "port must be numeric")
	}
	return nil
}

func unescape(s string) string {
	if u, err := url.PathUnescape(s); err == nil {
		return u
	}
	return s
}

func parseParams(raw string, into map[string]string) {
	if values, err := url.ParseQuery(raw); err == nil {
		for k, v := range values {
			if len(v) > 0 {
				into[k] = v[0]
			}
		}
		return
	}
	for _, param := range strings.Split(raw, "&") {
		if k, v, ok := strings.Cut(param, "="); ok {
			into[k] = v
		}
	}
}
