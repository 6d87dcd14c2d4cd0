// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package render

import (
	"strings"
	"sync"
	"unicode/utf8"
)

// Frames are the spinner frames used for in-progress lines.
var Frames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// StatusLine formats a repeatedly redrawn status line. Lines are padded to
// the longest one seen so a shorter update fully overwrites the last one.
type StatusLine struct {
	mu       sync.Mutex
	frameIdx int
	maxLen   int
	last     string
}

// Frame advances the spinner and returns the new frame.
func (s *StatusLine) Frame() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frameIdx++
	return Frames[s.frameIdx%len(Frames)]
}

// Format pads line and records it as the last rendered line.
func (s *StatusLine) Format(line string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := utf8.RuneCountInString(line)
	if n > s.maxLen {
		s.maxLen = n
	}
	if pad := s.maxLen - n; pad > 0 {
		line += strings.Repeat(" ", pad)
	}
	s.last = line
	return line
}

// Changed reports whether line differs from the last formatted line.
func (s *StatusLine) Changed(line string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.TrimRight(s.last, " ") != line
}

// Reset forgets the padding width.
func (s *StatusLine) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxLen = 0
	s.last = ""
}
