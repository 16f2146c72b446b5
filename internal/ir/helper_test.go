package ir

import (
	"io"
	"os"
	"testing"

	"cir/internal/diag"
)

// TestMain installs a panicking abort on the package's default diagnostic
// sink for the whole test binary, so tests that deliberately violate an
// invariant can recover the panic instead of exiting the process, and
// silences the sink's output so a deliberately triggered bug report doesn't
// clutter test output.
func TestMain(m *testing.M) {
	diag.Default.SetOutput(io.Discard)
	diag.Default.SetAbort(func(code int) { panic(bugPanic{code: code}) })
	os.Exit(m.Run())
}

type bugPanic struct{ code int }
