// Package diag is the IR core's diagnostic sink. The core recognizes exactly
// two failure modes, programmer bugs and allocation failure, and both route
// through here: write a [BUG] report and abort the process. There are no
// recoverable errors below this package.
package diag

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/pkg/errors"
)

// Sink receives bug reports from the IR core and decides how to fail.
// The zero value is not usable; construct one with NewSink.
type Sink struct {
	out   io.Writer
	abort func(code int)
}

// Default is the sink used by package-level Bug calls. Builder code in
// package ir reports through this sink.
var Default = NewSink()

// NewSink returns a sink that writes to stderr and aborts the process on
// Bug. Test code should call SetAbort to replace the abort behavior with a
// panic so invariant violations can be asserted without killing the runner.
func NewSink() *Sink {
	return &Sink{
		out:   os.Stderr,
		abort: os.Exit,
	}
}

// SetOutput redirects where bug reports are written.
func (s *Sink) SetOutput(w io.Writer) {
	s.out = w
}

// SetAbort overrides how the sink terminates after reporting a bug. Test
// builds typically install a function that panics instead of calling
// os.Exit, so failures can be recovered and asserted on. The function
// receives only the exit code; the report itself goes to the sink's output.
func (s *Sink) SetAbort(f func(code int)) {
	s.abort = f
}

// Bug reports a programmer-bug diagnostic: a violated IR invariant, a
// malformed builder call, or any condition the front-end should never have
// produced. It writes a "[BUG] ..." line plus a captured stack trace, then
// aborts via the sink's abort function (os.Exit(2) by default).
func (s *Sink) Bug(format string, args ...any) {
	err := errors.Errorf(format, args...)
	bold := color.New(color.FgRed, color.Bold).SprintFunc()
	fmt.Fprintf(s.out, "%s %+v\n", bold("[BUG]"), err)
	s.abort(2)
}

// Bug reports through the package default sink.
func Bug(format string, args ...any) {
	Default.Bug(format, args...)
}
