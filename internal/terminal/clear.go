// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package terminal wraps the few raw terminal operations the shell needs:
// line prompts, secret input, width detection and clearing echoed input.
package terminal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"golang.org/x/term"
)

const defaultWidth = 80

// Terminal reads prompts from in and writes to out.
type Terminal struct {
	in    *bufio.Reader
	out   io.Writer
	inFd  int
	outFd int
}

// Std returns a Terminal over stdin and stdout.
func Std() *Terminal {
	return &Terminal{
		in:    bufio.NewReader(os.Stdin),
		out:   os.Stdout,
		inFd:  int(os.Stdin.Fd()),
		outFd: int(os.Stdout.Fd()),
	}
}

// New returns a Terminal over arbitrary streams. It is never interactive.
func New(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewReader(in), out: out, inFd: -1, outFd: -1}
}

// Interactive reports whether both ends are attached to a terminal.
func (t *Terminal) Interactive() bool {
	return t.inFd >= 0 && t.outFd >= 0 && term.IsTerminal(t.inFd) && term.IsTerminal(t.outFd)
}

// Width returns the terminal width, or 80 when it is unknown.
func (t *Terminal) Width() int {
	if t.outFd >= 0 {
		if width, _, err := term.GetSize(t.outFd); err == nil && width > 0 {
			return width
		}
	}
	return defaultWidth
}

// Prompt prints label and returns the next input line without its newline.
// io.EOF is returned only when nothing at all was read.
func (t *Terminal) Prompt(label string) (string, error) {
	fmt.Fprint(t.out, label)
	line, err := t.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Secret prompts for input without echo when attached to a terminal.
func (t *Terminal) Secret(label string) (string, error) {
	if !t.Interactive() {
		return t.Prompt(label)
	}
	fmt.Fprint(t.out, label)
	b, err := term.ReadPassword(t.inFd)
	fmt.Fprintln(t.out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ClearPreviousLines erases textLength characters of echoed input, which
// wrapped at the terminal width, plus the empty line left by Enter.
func (t *Terminal) ClearPreviousLines(textLength int) {
	if !t.Interactive() {
		return
	}
	fmt.Fprint(t.out, clearSequence(LinesFor(textLength, t.Width())+1))
}

// LinesFor returns how many rows textLength characters occupy at width.
func LinesFor(textLength, width int) int {
	if width <= 0 {
		width = defaultWidth
	}
	lines := int(math.Ceil(float64(textLength) / float64(width)))
	if lines < 1 {
		return 1
	}
	return lines
}

func clearSequence(lines int) string {
	var b strings.Builder
	for i := 0; i < lines; i++ {
		b.WriteString("\r\x1b[2K")
		if i < lines-1 {
			b.WriteString("\x1b[1A")
		}
	}
	return b.String()
}
