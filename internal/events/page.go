// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package events

// Page is a take/skip window over query results. Take 0 means unbounded.
type Page struct {
	Take int
	Skip int
}

// Next returns the following window. An unbounded page has no next page.
func (p Page) Next() Page {
	if p.Take <= 0 {
		return p
	}
	return Page{Take: p.Take, Skip: p.Skip + p.Take}
}

// Prev returns the preceding window, stopping at the first one.
func (p Page) Prev() Page {
	skip := p.Skip - p.Take
	if skip < 0 || p.Take <= 0 {
		skip = 0
	}
	return Page{Take: p.Take, Skip: skip}
}

// First reports whether p starts at the first document.
func (p Page) First() bool { return p.Skip <= 0 }
