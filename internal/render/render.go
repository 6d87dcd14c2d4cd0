// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package render turns explorer state and response payloads into terminal
// text using pterm. Rendering happens on the foreground only.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/pterm/pterm"
	"go.mongodb.org/mongo-driver/bson"

	"seedfast/docshell/internal/backend"
	"seedfast/docshell/internal/errors"
	"seedfast/docshell/internal/events"
	"seedfast/docshell/internal/explorer"
	"seedfast/docshell/internal/logging"
)

var (
	headerStyle = pterm.NewStyle(pterm.FgLightCyan, pterm.Bold)
	dimStyle    = pterm.NewStyle(pterm.FgGray)
)

// Renderer writes rendered output to w.
type Renderer struct {
	w io.Writer
}

// New creates a renderer writing to w.
func New(w io.Writer) *Renderer { return &Renderer{w: w} }

func (r *Renderer) println(s string) {
	fmt.Fprintln(r.w, s)
}

// Databases prints the database names of server as a bullet list.
func (r *Renderer) Databases(server string, names []string) {
	r.println(headerStyle.Sprintf("Databases on %s", server))
	r.println(List(names))
}

// Collections prints the collections of database.
func (r *Renderer) Collections(database string, names []string) {
	r.println(headerStyle.Sprintf("Collections in %s", database))
	r.println(List(names))
}

// Documents prints one page of documents as relaxed Extended JSON.
func (r *Renderer) Documents(namespace string, page events.Page, docs []backend.Document) {
	r.println(headerStyle.Sprint(namespace) + " " + dimStyle.Sprint(PageLabel(page, len(docs))))
	if len(docs) == 0 {
		r.println(dimStyle.Sprint("(no documents)"))
		return
	}
	for _, doc := range docs {
		r.println(FormatDocument(doc))
	}
}

// Results prints the result of every statement of a script.
func (r *Renderer) Results(results []backend.Result) {
	for i, res := range results {
		r.println(headerStyle.Sprintf("[%d] %s", i+1, firstLine(res.Statement)))
		if res.Message != "" {
			r.println(dimStyle.Sprint(res.Message))
		}
		if res.Affected > 0 {
			r.println(fmt.Sprintf("%d document(s) affected", res.Affected))
		}
		for _, doc := range res.Documents {
			r.println(FormatDocument(doc))
		}
	}
}

// Server prints the connection state of one server in a box.
func (r *Renderer) Server(name, uri string, state explorer.ServerState) {
	var b strings.Builder
	fmt.Fprintf(&b, "Address: %s\n", logging.Mask(uri))
	fmt.Fprintf(&b, "State:   %s", state.State)
	if state.Address != "" {
		fmt.Fprintf(&b, " (%s)", state.Address)
	}
	if state.Reason != "" {
		fmt.Fprintf(&b, "\nReason:  %s", logging.Mask(state.Reason))
	}
	r.println(pterm.DefaultBox.WithTitle(headerStyle.Sprint(name)).Sprint(b.String()))
}

// Activity prints the activity log.
func (r *Renderer) Activity(lines []string) {
	for _, line := range lines {
		r.println(dimStyle.Sprint("• ") + line)
	}
}

// Error prints a failed response.
func (r *Renderer) Error(e errors.E, action string) {
	r.println(logging.FormatError(e, action))
}

// List renders items as a pterm bullet list.
func List(items []string) string {
	if len(items) == 0 {
		return dimStyle.Sprint("(none)")
	}
	out, err := pterm.DefaultBulletList.WithItems(bulletItems(items)).Srender()
	if err != nil {
		return strings.Join(items, "\n")
	}
	return strings.TrimRight(out, "\n")
}

func bulletItems(items []string) (out []pterm.BulletListItem) {
	for _, s := range items {
		out = append(out, pterm.BulletListItem{Level: 0, Text: s})
	}
	return out
}

// FormatDocument renders doc as indented relaxed Extended JSON. Invalid BSON
// falls back to the driver's own string form.
func FormatDocument(doc backend.Document) string {
	out, err := bson.MarshalExtJSONIndent(doc, false, false, "", "  ")
	if err != nil {
		return doc.String()
	}
	return string(out)
}

// PageLabel describes the window a page of n documents covers.
func PageLabel(page events.Page, n int) string {
	if n == 0 {
		return fmt.Sprintf("(nothing after %d)", page.Skip)
	}
	return fmt.Sprintf("(%d-%d)", page.Skip+1, page.Skip+n)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " …"
	}
	return s
}
