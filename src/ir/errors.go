package ir

import (
	"fmt"
	"sort"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// SourceError is one accumulated compile diagnostic: a message and the Position it was raised at.
// A Position with Line 0 means the error has no specific source location (e.g. a missing $main).
type SourceError struct {
	Pos     Position
	Message string
}

// Diagnostics buffers SourceErrors across an entire compilation run. Unlike the teacher's channel-fed
// perror listener, it is a plain slice appended to synchronously: section 5 of the governing
// specification runs the whole pipeline on one goroutine, so there is nothing to fan errors in from.
type Diagnostics struct {
	errs []SourceError
}

// ---------------------
// ----- Functions -----
// ---------------------

// Add appends a SourceError at pos.
func (d *Diagnostics) Add(pos Position, format string, args ...interface{}) {
	d.errs = append(d.errs, SourceError{Pos: pos, Message: fmt.Sprintf(format, args...)})
}

// HasErrors reports whether any diagnostic has been recorded.
func (d *Diagnostics) HasErrors() bool {
	return len(d.errs) > 0
}

// Len returns the number of recorded diagnostics.
func (d *Diagnostics) Len() int {
	return len(d.errs)
}

// Sorted returns every recorded SourceError ordered by Position: unit, then start line, then start
// column, with positionless errors sorted last within their unit.
func (d *Diagnostics) Sorted() []SourceError {
	out := make([]SourceError, len(d.errs))
	copy(out, d.errs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Pos.Less(out[j].Pos)
	})
	return out
}
