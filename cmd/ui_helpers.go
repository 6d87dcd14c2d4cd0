// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"sync"
	"time"

	"atomicgo.dev/cursor"
	"github.com/pterm/pterm"

	"seedfast/docshell/internal/render"
)

const spinnerInterval = 120 * time.Millisecond

// spinner redraws a single status line in a pterm area until stopped.
// When the terminal is not interactive it draws nothing.
type spinner struct {
	area   *pterm.AreaPrinter
	status render.StatusLine
	stop   chan struct{}
	wg     sync.WaitGroup

	mu   sync.Mutex
	text string
}

// startSpinner hides the cursor and starts animating text.
func startSpinner(text string, interactive bool) *spinner {
	s := &spinner{text: text, stop: make(chan struct{})}
	if !interactive {
		return s
	}
	cursor.Hide()
	area, err := pterm.DefaultArea.WithRemoveWhenDone(true).Start()
	if err != nil {
		cursor.Show()
		return s
	}
	s.area = area
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		t := time.NewTicker(spinnerInterval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				s.draw()
			case <-s.stop:
				return
			}
		}
	}()
	return s
}

func (s *spinner) draw() {
	s.mu.Lock()
	text := s.text
	s.mu.Unlock()
	s.area.Update(s.status.Format(fmt.Sprintf("%s %s", s.status.Frame(), text)))
}

// Update replaces the text shown next to the spinner.
func (s *spinner) Update(text string) {
	s.mu.Lock()
	s.text = text
	s.mu.Unlock()
}

// Stop clears the area and shows the cursor again. It is safe to call twice.
func (s *spinner) Stop() {
	if s.area == nil {
		return
	}
	close(s.stop)
	s.wg.Wait()
	_ = s.area.Stop()
	s.area = nil
	s.status.Reset()
	cursor.Show()
}
