// Package rma selects which hand-written register-machine overload of an instruction to emit for a
// given operand stack shape.
package rma

import (
	"fmt"

	"sslc/src/ir"
)

// Select picks the overload of fn to invoke given actual, the registers currently occupying fn's
// input window (deepest first). Per the declared policy, it prefers the first overload whose
// binding order already matches actual (so invoking it needs no register moves), falling back to
// the first declared overload when none match exactly.
func Select(fn *ir.Function, actual []int) (*ir.RMAOverload, error) {
	if len(fn.Overloads) == 0 {
		return nil, fmt.Errorf("%s: instruction %q has no RMA overloads", fn.Pos, fn.Name)
	}
	for i := range fn.Overloads {
		if !fn.Overloads[i].NeedsMoves(actual) {
			return &fn.Overloads[i], nil
		}
	}
	return &fn.Overloads[0], nil
}

// SelectBranch returns fn's branch overload, if it has one.
func SelectBranch(fn *ir.Function) (*ir.RMAOverload, bool) {
	if fn.Branch == nil {
		return nil, false
	}
	return fn.Branch, true
}
