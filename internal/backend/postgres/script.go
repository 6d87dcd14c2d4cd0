// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package postgres

import "strings"

// SplitStatements splits SQL text on semicolons that are outside quotes,
// dollar-quoted bodies and comments. Empty statements are dropped.
func SplitStatements(text string) []string {
	var (
		out   []string
		start int
	)
	emit := func(end int) {
		if stmt := strings.TrimSpace(text[start:end]); stmt != "" {
			out = append(out, stmt)
		}
	}

	for i := 0; i < len(text); i++ {
		switch c := text[i]; {
		case c == '\'' || c == '"':
			i = skipQuoted(text, i, c)
		case c == '-' && strings.HasPrefix(text[i:], "--"):
			if nl := strings.IndexByte(text[i:], '\n'); nl >= 0 {
				i += nl
			} else {
				i = len(text)
			}
		case c == '/' && strings.HasPrefix(text[i:], "/*"):
			if end := strings.Index(text[i+2:], "*/"); end >= 0 {
				i += end + 3
			} else {
				i = len(text)
			}
		case c == '$':
			if tag, ok := dollarTag(text[i:]); ok {
				if end := strings.Index(text[i+len(tag):], tag); end >= 0 {
					i += len(tag) + end + len(tag) - 1
				} else {
					i = len(text)
				}
			}
		case c == ';':
			emit(i)
			start = i + 1
		}
	}
	if start < len(text) {
		emit(len(text))
	}
	return out
}

// skipQuoted returns the index of the closing quote. Doubled quotes escape.
func skipQuoted(text string, i int, quote byte) int {
	for j := i + 1; j < len(text); j++ {
		if text[j] == quote {
			if j+1 < len(text) && text[j+1] == quote {
				j++
				continue
			}
			return j
		}
	}
	return len(text)
}

// dollarTag recognises $$ and $tag$ openers.
func dollarTag(s string) (string, bool) {
	end := strings.IndexByte(s[1:], '$')
	if end < 0 {
		return "", false
	}
	tag := s[:end+2]
	for _, r := range tag[1 : len(tag)-1] {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return "", false
		}
	}
	if len(tag) > 2 && tag[1] >= '0' && tag[1] <= '9' {
		// $1 style parameter
		return "", false
	}
	return tag, true
}
