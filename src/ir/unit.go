package ir

import (
	"math/big"

	"sslc/src/frontend/syntax"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Unit is an immutable record of one compiled source file: its path, its source text, its parsed
// syntax tree and a highlighted rendering of each line for diagnostics. It lives for the duration
// of compilation; every Literal and Function parsed from it borrows its Path as a Position's unit
// identifier rather than copying source text around.
type Unit struct {
	Path      string
	Source    string
	Tree      *syntax.Node
	Highlight []string // One rendered (ANSI-colored) line per source line, precomputed for diagnostics.
}

// Module is the merged result of compiling one or more Units together: a single global namespace of
// functions/instructions, one data section, one set of resolved headers, and the macro table
// available to literal resolution. Names are unique across every unit that contributed to it.
type Module struct {
	Units     []*Unit
	Headers   Headers
	Macros    map[string]*big.Int
	Data      *DataSection
	Functions *Registry
	Diags     *Diagnostics
}

// ---------------------
// ----- Functions -----
// ---------------------

// NewModule returns an empty Module ready to have units merged into it.
func NewModule() *Module {
	return &Module{
		Macros:    make(map[string]*big.Int),
		Data:      NewDataSection(),
		Functions: NewRegistry(),
		Diags:     &Diagnostics{},
	}
}

// Macro looks up a macro's resolved value by name.
func (m *Module) Macro(name string) (*big.Int, bool) {
	v, ok := m.Macros[name]
	return v, ok
}

// DefineMacro binds name to value in the macro table that macro literals resolve against. No source
// form defines a macro, so this method is the only way the table is populated.
func (m *Module) DefineMacro(name string, value *big.Int) {
	m.Macros[name] = value
}

// Finalize lays out the data section and function addresses once every unit has been merged in, and
// must run before any Literal referencing a data label or function name is resolved.
func (m *Module) Finalize() {
	m.Data.Layout()
	m.Functions.Layout()
}
