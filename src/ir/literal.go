package ir

import (
	"fmt"
	"math/big"
	"strings"

	"sslc/src/frontend/syntax"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// LiteralKind differentiates the constant forms the surface grammar accepts wherever a literal
// value is expected: inside `const`, data definitions, and RMA instruction operands.
type LiteralKind int

const (
	LitNumber LiteralKind = iota
	LitChar
	LitCharEscape
	LitMacro
	LitDataLabel
	LitFunction
	LitMem
)

// Literal is one constant value as written in source, before it is resolved to a final machine
// word. Number/Char/CharEscape/Mem resolve without any context; Macro, DataLabel and Function need
// the Module's macro table, data layout and function registry respectively.
type Literal struct {
	Kind LiteralKind
	Pos  Position
	Text string // Raw source text, sans any sigil.
	Num  *big.Int
}

// -------------------------
// ----- Constructors -----
// -------------------------

// ParseLiteral converts a parsed leaf node into a Literal. n must be one of the leaf kinds the
// parser emits for a literal position: number, char, char_escape, macro, data_label, function_name
// or mem.
func ParseLiteral(n *syntax.Node, unit string) (Literal, error) {
	pos := positionOf(n, unit)
	switch n.Kind() {
	case "number":
		v, err := parseNumber(n.Text())
		if err != nil {
			return Literal{}, fmt.Errorf("%s: %w", pos, err)
		}
		return Literal{Kind: LitNumber, Pos: pos, Text: n.Text(), Num: v}, nil
	case "char":
		text := n.Text()
		if len(text) < 3 {
			return Literal{}, fmt.Errorf("%s: malformed char literal %q", pos, text)
		}
		r := []rune(text[1 : len(text)-1])
		if len(r) != 1 {
			return Literal{}, fmt.Errorf("%s: char literal must hold exactly one rune", pos)
		}
		return Literal{Kind: LitChar, Pos: pos, Text: n.Text(), Num: big.NewInt(int64(r[0]))}, nil
	case "char_escape":
		v, err := parseCharEscape(n.Text())
		if err != nil {
			return Literal{}, fmt.Errorf("%s: %w", pos, err)
		}
		return Literal{Kind: LitCharEscape, Pos: pos, Text: n.Text(), Num: v}, nil
	case "macro":
		return Literal{Kind: LitMacro, Pos: pos, Text: strings.TrimPrefix(n.Text(), "@")}, nil
	case "data_label":
		return Literal{Kind: LitDataLabel, Pos: pos, Text: strings.TrimPrefix(n.Text(), ".")}, nil
	case "function_name":
		return Literal{Kind: LitFunction, Pos: pos, Text: strings.TrimPrefix(n.Text(), "$")}, nil
	case "mem":
		v, err := parseNumber(strings.TrimPrefix(n.Text(), "#"))
		if err != nil {
			return Literal{}, fmt.Errorf("%s: %w", pos, err)
		}
		return Literal{Kind: LitMem, Pos: pos, Text: n.Text(), Num: v}, nil
	default:
		return Literal{}, fmt.Errorf("%s: not a literal: %s", pos, n.Kind())
	}
}

// parseNumber parses an unsigned integer literal with an optional 0x/0b/0o base prefix into
// arbitrary precision, matching the header-bound bits validation performed by Resolve.
func parseNumber(text string) (*big.Int, error) {
	base := 10
	digits := text
	if strings.HasPrefix(text, "0x") {
		base, digits = 16, text[2:]
	} else if strings.HasPrefix(text, "0b") {
		base, digits = 2, text[2:]
	} else if strings.HasPrefix(text, "0o") {
		base, digits = 8, text[2:]
	}
	v, ok := new(big.Int).SetString(digits, base)
	if !ok {
		return nil, fmt.Errorf("malformed numeric literal %q", text)
	}
	return v, nil
}

// parseCharEscape resolves a backslash escape sequence such as '\n' or '\0' to its numeric value.
func parseCharEscape(text string) (*big.Int, error) {
	if len(text) < 4 {
		return nil, fmt.Errorf("malformed char escape literal %q", text)
	}
	c := text[2]
	var v int64
	switch c {
	case 'n':
		v = '\n'
	case 't':
		v = '\t'
	case 'r':
		v = '\r'
	case '0':
		v = 0
	case '\\':
		v = '\\'
	case '\'':
		v = '\''
	default:
		return nil, fmt.Errorf("unknown char escape '\\%c'", c)
	}
	return big.NewInt(v), nil
}

// ---------------------
// ----- Resolving -----
// ---------------------

// Resolve converts lit to its final integer value given the compiled Module's macro table, data
// layout and function registry, and checks the result fits within bits, matching the original
// compiler's validation of literal values against the module's declared register width.
func (lit Literal) Resolve(m *Module, bits uint) (*big.Int, error) {
	var v *big.Int
	switch lit.Kind {
	case LitNumber, LitChar, LitCharEscape, LitMem:
		v = lit.Num
	case LitMacro:
		val, ok := m.Macro(lit.Text)
		if !ok {
			return nil, fmt.Errorf("%s: undefined macro @%s", lit.Pos, lit.Text)
		}
		v = val
	case LitDataLabel:
		addr, ok := m.Data.Address(lit.Text)
		if !ok {
			return nil, fmt.Errorf("%s: undefined data label .%s", lit.Pos, lit.Text)
		}
		v = big.NewInt(int64(addr))
	case LitFunction:
		addr, ok := m.Functions.Address(lit.Text)
		if !ok {
			return nil, fmt.Errorf("%s: undefined function $%s", lit.Pos, lit.Text)
		}
		v = big.NewInt(int64(addr))
	default:
		return nil, fmt.Errorf("%s: unresolvable literal", lit.Pos)
	}
	limit := new(big.Int).Lsh(big.NewInt(1), bits)
	if v.Sign() < 0 || v.Cmp(limit) >= 0 {
		return nil, fmt.Errorf("%s: literal %s does not fit in %d bits", lit.Pos, v.String(), bits)
	}
	return v, nil
}

// positionOf builds a Position for n within unit from its syntax Range.
func positionOf(n *syntax.Node, unit string) Position {
	r := n.Range()
	return Position{Unit: unit, Line: r.StartPoint.Row + 1, Column: r.StartPoint.Column + 1}
}

// FormatHex renders v as an RMA hex literal, the form the backend emits resolved literal values in
// (const immediates, data words and char operands). Number operands written inside an RMA overload
// body are emitted as written.
func FormatHex(v *big.Int) string {
	return "0x" + strings.ToUpper(v.Text(16))
}
