package util

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"

	"sslc/src/ir"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// ---------------------
// ----- functions -----
// ---------------------

var (
	stderr   = colorable.NewColorableStderr()
	errLabel = color.New(color.FgRed, color.Bold).SprintFunc()
	posLabel = color.New(color.FgCyan).SprintFunc()
)

// PrintDiagnostics renders every diagnostic buffered in diags to stderr, sorted by position, one
// line per error. It reports whether any diagnostic was printed.
func PrintDiagnostics(diags *ir.Diagnostics) bool {
	errs := diags.Sorted()
	for _, e := range errs {
		fmt.Fprintf(stderr, "%s %s: %s\n", errLabel("error:"), posLabel(e.Pos.String()), e.Message)
	}
	return len(errs) > 0
}

// Exit prints a message to stderr and exits the process with the given status code.
func Exit(code int, format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(code)
}
