// Package emit serializes a compiled Module, together with each stack-bodied function's already
// lowered register-machine text, into the final RMA output.
package emit

import (
	"fmt"
	"sort"
	"strings"

	"sslc/src/ir"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Options controls output shaping flags exposed on the CLI.
type Options struct {
	NoMain              bool
	FlattenArrays       bool
	CharsAsCodepoints   bool
	CharsAsNumeric      bool
	StringsAsCharArrays bool
}

// ---------------------
// ----- Functions -----
// ---------------------

// Module serializes mod to RMA text. bodies supplies each stack-bodied function's already lowered
// instruction text, keyed by function name; maxRegs is the highest register index any lowering pass
// touched, reported as MINREG.
func Module(mod *ir.Module, bodies map[string]string, maxRegs int, opts Options) (string, error) {
	var w strings.Builder

	h := mod.Headers.Resolved()
	fmt.Fprintf(&w, "BITS %d\n", h.Bits)
	fmt.Fprintf(&w, "MINHEAP %d\n", h.MinHeap)
	fmt.Fprintf(&w, "MINSTACK %d\n", h.MinStack)
	fmt.Fprintf(&w, "MINREG %d\n", maxRegs)

	if !opts.NoMain {
		main, ok := mod.Functions.Lookup("main")
		if !ok || main.Sig != (ir.Signature{Params: 0, Returns: 0}) {
			return "", fmt.Errorf("no function $main with stack (0 -> 0) declared")
		}
		fmt.Fprintf(&w, "CAL %s\n", ir.FuncLabel("main"))
		fmt.Fprintf(&w, "HLT\n")
	}

	if err := writeData(&w, mod, h.Bits, opts); err != nil {
		return "", err
	}

	var names []string
	for _, name := range mod.Functions.Names() {
		fn, _ := mod.Functions.Lookup(name)
		if fn.Kind == ir.BodyStackBody {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&w, "%s:\n", ir.FuncLabel(name))
		w.WriteString(bodies[name])
	}

	return w.String(), nil
}

func writeData(w *strings.Builder, mod *ir.Module, bits uint, opts Options) error {
	for _, def := range mod.Data.Defs() {
		fmt.Fprintf(w, "%s:\n", ir.DataLabel(def.Label))
		values := make([]string, 0, len(def.Values))
		for _, lit := range def.Values {
			v, err := lit.Resolve(mod, bits)
			if err != nil {
				return err
			}
			values = append(values, ir.FormatHex(v))
		}
		if opts.FlattenArrays {
			for _, v := range values {
				fmt.Fprintf(w, "DW %s\n", v)
			}
			continue
		}
		fmt.Fprintf(w, "DW %s\n", strings.Join(values, " "))
	}
	return nil
}
