package ir

import (
	"strconv"
	"strings"
)

// Headers holds the module-wide configuration declared by a unit's `bits`/`minheap`/`minstack`
// lines. Exactly one unit in a compilation may declare each header; Merge enforces that, and
// Resolved fills in the documented defaults for whichever are left unset.
type Headers struct {
	Bits     uint // Register/word width in bits. Defaults to 8.
	MinHeap  uint // Minimum heap cell count guaranteed by the runtime. Defaults to 0.
	MinStack uint // Minimum operand stack depth guaranteed by the runtime. Defaults to 8.

	BitsSet     bool
	MinHeapSet  bool
	MinStackSet bool
}

// DefaultHeaders returns the Headers value used when a unit declares none of the three headers.
func DefaultHeaders() Headers {
	return Headers{Bits: 8, MinHeap: 0, MinStack: 8}
}

// Merge combines h with other, erroring if either header is already set — a header line is
// required exactly once across a compilation, so a second declaration is rejected even when its
// value matches the first, rather than letting the last declaration silently win.
func (h Headers) Merge(other Headers) (Headers, error) {
	out := h
	if other.BitsSet {
		if h.BitsSet {
			return Headers{}, errConflict("bits", h.Bits, other.Bits)
		}
		out.Bits, out.BitsSet = other.Bits, true
	}
	if other.MinHeapSet {
		if h.MinHeapSet {
			return Headers{}, errConflict("minheap", h.MinHeap, other.MinHeap)
		}
		out.MinHeap, out.MinHeapSet = other.MinHeap, true
	}
	if other.MinStackSet {
		if h.MinStackSet {
			return Headers{}, errConflict("minstack", h.MinStack, other.MinStack)
		}
		out.MinStack, out.MinStackSet = other.MinStack, true
	}
	return out, nil
}

// Resolved fills in any unset header with its default value. Callers must have already checked
// CheckComplete; Resolved exists only to give the emitter concrete numbers to print and does not
// itself enforce that every header was declared.
func (h Headers) Resolved() Headers {
	d := DefaultHeaders()
	if !h.BitsSet {
		h.Bits = d.Bits
	}
	if !h.MinHeapSet {
		h.MinHeap = d.MinHeap
	}
	if !h.MinStackSet {
		h.MinStack = d.MinStack
	}
	return h
}

// CheckComplete reports an error naming every header (`bits`, `minheap`, `minstack`) that was
// never declared. Each header is required exactly once; silently defaulting a missing header is
// not acceptable per the original compiler's hard failure on a missing header line.
func (h Headers) CheckComplete() error {
	var missing []string
	if !h.BitsSet {
		missing = append(missing, "bits")
	}
	if !h.MinHeapSet {
		missing = append(missing, "minheap")
	}
	if !h.MinStackSet {
		missing = append(missing, "minstack")
	}
	if len(missing) == 0 {
		return nil
	}
	return &headerMissingError{missing}
}

func errConflict(name string, a, b uint) error {
	return &headerConflictError{name, a, b}
}

type headerConflictError struct {
	name string
	a, b uint
}

func (e *headerConflictError) Error() string {
	return e.name + " header already declared as " + strconv.FormatUint(uint64(e.a), 10) +
		"; redeclared as " + strconv.FormatUint(uint64(e.b), 10)
}

type headerMissingError struct {
	names []string
}

func (e *headerMissingError) Error() string {
	return "missing required header declaration(s): " + strings.Join(e.names, ", ")
}
