// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package mongodb

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"seedfast/docshell/internal/backend"
	"seedfast/docshell/internal/errors"
)

// Command is one command document of a script.
type Command struct {
	Name string
	Text string
	Doc  bson.D
}

// ParseScript splits text into Extended JSON command documents. Documents
// may be separated by whitespace, commas or semicolons.
func ParseScript(text string) ([]Command, error) {
	chunks, err := splitDocuments(text)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, errors.New(errors.InvalidArgument, "script is empty")
	}

	commands := make([]Command, 0, len(chunks))
	for i, chunk := range chunks {
		var doc bson.D
		if err := bson.UnmarshalExtJSON([]byte(chunk), false, &doc); err != nil {
			return nil, errors.Wrap(errors.InvalidArgument, fmt.Sprintf("statement %d", i+1), err)
		}
		if len(doc) == 0 {
			return nil, errors.Newf(errors.InvalidArgument, "statement %d: empty command document", i+1)
		}
		commands = append(commands, Command{Name: doc[0].Key, Text: chunk, Doc: doc})
	}
	return commands, nil
}

func splitDocuments(text string) ([]string, error) {
	var (
		chunks   []string
		depth    int
		start    = -1
		inString bool
		escaped  bool
	)
	for i, r := range text {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}

		switch {
		case r == '"' && depth > 0:
			inString = true
		case r == '{':
			if depth == 0 {
				start = i
			}
			depth++
		case r == '}':
			if depth == 0 {
				return nil, errors.Newf(errors.InvalidArgument, "unexpected '}' at offset %d", i)
			}
			depth--
			if depth == 0 {
				chunks = append(chunks, text[start:i+1])
			}
		case depth == 0 && !strings.ContainsRune(" \t\r\n;,", r):
			return nil, errors.Newf(errors.InvalidArgument, "expected a command document at offset %d", i)
		}
	}
	if depth != 0 || inString {
		return nil, errors.New(errors.InvalidArgument, "unterminated command document")
	}
	return chunks, nil
}

// resultOf turns a command reply into a Result. Cursor replies contribute
// their first batch as documents; anything else is returned as a single
// document.
func resultOf(cmd Command, reply bson.Raw) (backend.Result, error) {
	res := backend.Result{Statement: cmd.Text}

	if n, ok := reply.Lookup("n").AsInt64OK(); ok {
		res.Affected = n
	}
	if mod, ok := reply.Lookup("nModified").AsInt64OK(); ok {
		res.Affected = mod
	}

	batch, err := reply.LookupErr("cursor", "firstBatch")
	if err != nil {
		res.Documents = []backend.Document{append(backend.Document(nil), reply...)}
		res.Message = cmd.Name + " ok"
		return res, nil
	}

	arr, ok := batch.ArrayOK()
	if !ok {
		return res, errors.Newf(errors.DriverError, "%s: cursor.firstBatch is not an array", cmd.Name)
	}
	values, err := arr.Values()
	if err != nil {
		return res, errors.Wrap(errors.DriverError, cmd.Name, err)
	}
	for _, v := range values {
		if doc, ok := v.DocumentOK(); ok {
			res.Documents = append(res.Documents, append(backend.Document(nil), doc...))
		}
	}
	res.Message = fmt.Sprintf("%s returned %d document(s)", cmd.Name, len(res.Documents))
	return res, nil
}
