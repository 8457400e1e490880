// Package diagnostics provides the logging interface the core
// consumes for warnings and verbose diagnostics, colorized the way
// the CLI layer expects when attached to a terminal.
package diagnostics

import (
	"io"
	"os"

	"github.com/fatih/color"
)

// Logger is the interface the store, searcher and LSH index use to
// surface warnings without depending on the CLI layer directly.
type Logger interface {
	Warn(format string, args ...interface{})
	Info(format string, args ...interface{})
}

// Std is the default Logger, writing to an io.Writer (stderr by
// convention) with warnings in yellow and info lines dimmed when
// Verbose is set.
type Std struct {
	Out     io.Writer
	Verbose bool
}

// New returns a Std logger writing to os.Stderr.
func New(verbose bool) *Std {
	return &Std{Out: os.Stderr, Verbose: verbose}
}

func (s *Std) Warn(format string, args ...interface{}) {
	warn := color.New(color.FgYellow)
	warn.Fprintf(s.Out, "warning: "+format+"\n", args...)
}

func (s *Std) Info(format string, args ...interface{}) {
	if !s.Verbose {
		return
	}
	dim := color.New(color.FgHiBlack)
	dim.Fprintf(s.Out, format+"\n", args...)
}

// Noop discards every message; used in tests and in library use of
// the core packages where diagnostics aren't wanted.
type Noop struct{}

func (Noop) Warn(format string, args ...interface{}) {}
func (Noop) Info(format string, args ...interface{}) {}

var _ Logger = (*Std)(nil)
var _ Logger = Noop{}
