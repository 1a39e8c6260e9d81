package ir

import (
	"fmt"
	"strconv"

	"sslc/src/frontend/syntax"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Permutation is a `(N : i0 i1 … im-1)` reshaping signature. It consumes the top N elements of the
// operand stack and produces len(Indices) elements, where output element j is input[Indices[j]].
// Indices index into the consumed window with 0 at the window's bottom (the deepest of the N
// consumed elements) and N-1 at its top, so `(2 : 0 1 0)` duplicates the element beneath the top.
// Indices may repeat (duplication) or skip values (elision); it need not be a bijection.
type Permutation struct {
	Input   int
	Indices []int
}

// ---------------------
// ----- Functions -----
// ---------------------

// ParsePermutation reads a permutation_sig node produced by the parser's inst_permutation rule.
func ParsePermutation(n *syntax.Node, unit string) (Permutation, error) {
	pos := positionOf(n, unit)
	inputNode := n.Field("input")
	if inputNode == nil {
		return Permutation{}, fmt.Errorf("%s: permutation missing input arity", pos)
	}
	input, err := strconv.Atoi(inputNode.Text())
	if err != nil {
		return Permutation{}, fmt.Errorf("%s: malformed permutation arity %q", pos, inputNode.Text())
	}
	var indices []int
	for _, idxNode := range n.FieldAll("index") {
		idx, err := strconv.Atoi(idxNode.Text())
		if err != nil {
			return Permutation{}, fmt.Errorf("%s: malformed permutation index %q", pos, idxNode.Text())
		}
		if idx < 0 || idx >= input {
			return Permutation{}, fmt.Errorf("%s: permutation index %d out of range for arity %d", pos, idx, input)
		}
		indices = append(indices, idx)
	}
	return Permutation{Input: input, Indices: indices}, nil
}

// Output returns the number of elements this permutation produces.
func (p Permutation) Output() int {
	return len(p.Indices)
}

// Apply rewrites stack (register indices, top at the end) by replacing its top Input elements with
// the elements selected by Indices from that same window.
func (p Permutation) Apply(stack []int) ([]int, error) {
	if len(stack) < p.Input {
		return nil, fmt.Errorf("permutation needs %d elements on the stack, only %d present", p.Input, len(stack))
	}
	window := stack[len(stack)-p.Input:]
	base := stack[:len(stack)-p.Input]
	out := make([]int, len(p.Indices))
	for i, idx := range p.Indices {
		out[i] = window[idx]
	}
	return append(append([]int{}, base...), out...), nil
}

// IsIdentity reports whether p leaves the stack unchanged: same arity in and out, each output
// position selecting the input at the same position.
func (p Permutation) IsIdentity() bool {
	if p.Input != len(p.Indices) {
		return false
	}
	for i, idx := range p.Indices {
		if idx != i {
			return false
		}
	}
	return true
}

// String renders p in its source signature form, e.g. "(2 : 0 1 0)".
func (p Permutation) String() string {
	s := fmt.Sprintf("(%d :", p.Input)
	for _, idx := range p.Indices {
		s += fmt.Sprintf(" %d", idx)
	}
	return s + ")"
}
