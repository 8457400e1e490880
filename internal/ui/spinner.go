// Package ui provides small terminal feedback helpers for long-running
// ingestion (bulk `add`, `watch`).
package ui

import (
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
)

// Progress wraps a terminal spinner used while a JSON-lines stream or
// watched directory is being ingested.
type Progress struct {
	s       *spinner.Spinner
	enabled bool
}

// NewProgress creates a spinner with the given message. When attached
// to a non-terminal (e.g. piped output in scripts), callers should
// still get it — the spinner writes to stderr, leaving stdout clean
// for the JSON result streams add/list/search produce.
func NewProgress(msg string, enabled bool) *Progress {
	s := spinner.New(spinner.CharSets[14], 80*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = "  " + msg
	s.Color("cyan")
	return &Progress{s: s, enabled: enabled}
}

// Start begins the spinner animation.
func (p *Progress) Start() {
	if p.enabled {
		p.s.Start()
	}
}

// Stop halts the spinner.
func (p *Progress) Stop() {
	if p.enabled {
		p.s.Stop()
	}
}

// Done stops the spinner and prints a summary line.
func (p *Progress) Done(format string, args ...interface{}) {
	p.Stop()
	green := color.New(color.FgGreen)
	green.Fprintf(os.Stderr, "  %s\n", fmt.Sprintf(format, args...))
}

// Failed stops the spinner and prints a failure line.
func (p *Progress) Failed(format string, args ...interface{}) {
	p.Stop()
	red := color.New(color.FgRed)
	red.Fprintf(os.Stderr, "  %s\n", fmt.Sprintf(format, args...))
}
