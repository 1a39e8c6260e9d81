package ir

import (
	"fmt"
	"strconv"
	"strings"

	"sslc/src/frontend/syntax"
)

// ----------------------------
// ----- Functions -----
// ----------------------------

// Declare walks tree's top-level headers, data definitions and function/instruction declarations
// and merges them into mod. Semantic problems (header conflicts, signature conflicts, duplicate
// definitions) are recorded as diagnostics and walking continues; a missing field that the parser
// should never have produced is a compiler-internal invariant violation and panics, matching the
// distinction the governing error model draws between semantic errors and syntax-shape bugs.
func Declare(tree *syntax.Node, unitPath string, mod *Module) {
	for _, h := range tree.FieldAll("headers") {
		declareHeader(h, unitPath, mod)
	}
	for _, d := range tree.FieldAll("data") {
		declareData(d, unitPath, mod)
	}
	for _, c := range tree.FieldAll("code") {
		declareCode(c, unitPath, mod)
	}
}

func mustField(n *syntax.Node, name string) *syntax.Node {
	f := n.Field(name)
	if f == nil {
		panic("ir: node " + n.Kind() + " missing required field " + name)
	}
	return f
}

func atoi(n *syntax.Node) int {
	v, err := strconv.Atoi(n.Text())
	if err != nil {
		panic("ir: malformed integer literal " + n.Text())
	}
	return v
}

func declareHeader(n *syntax.Node, unit string, mod *Module) {
	pos := positionOf(n, unit)
	value := uint(atoi(mustField(n, "value")))
	var h Headers
	switch n.Kind() {
	case "bits":
		h = Headers{Bits: value, BitsSet: true}
	case "minheap":
		h = Headers{MinHeap: value, MinHeapSet: true}
	case "minstack":
		h = Headers{MinStack: value, MinStackSet: true}
	default:
		panic("ir: unknown header kind " + n.Kind())
	}
	merged, err := mod.Headers.Merge(h)
	if err != nil {
		mod.Diags.Add(pos, "%s", err)
		return
	}
	mod.Headers = merged
}

func declareData(n *syntax.Node, unit string, mod *Module) {
	pos := positionOf(n, unit)
	label := mustField(n, "label").Text()
	valueNode := mustField(n, "value")
	var values []Literal
	if valueNode.Kind() == "array" {
		for _, el := range valueNode.FieldAll("element") {
			lit, err := ParseLiteral(el, unit)
			if err != nil {
				mod.Diags.Add(pos, "%s", err)
				return
			}
			values = append(values, lit)
		}
	} else {
		lit, err := ParseLiteral(valueNode, unit)
		if err != nil {
			mod.Diags.Add(pos, "%s", err)
			return
		}
		values = []Literal{lit}
	}
	if err := mod.Data.Define(DataDef{Label: label, Pos: pos, Values: values}); err != nil {
		mod.Diags.Add(pos, "%s", err)
	}
}

func declareCode(n *syntax.Node, unit string, mod *Module) {
	pos := positionOf(n, unit)
	var fn *Function
	var err error
	switch n.Kind() {
	case "func":
		fn, err = declareStackFunc(n, unit)
	case "extern_func":
		fn, err = declareExternFunc(n, unit)
	case "deferred_func":
		fn, err = declareDeferredFunc(n, unit)
	case "inst":
		fn, err = declareInst(n, unit)
	case "inst_branch":
		fn, err = declareInstBranch(n, unit)
	case "inst_permutation":
		fn, err = declareInstPermutation(n, unit)
	case "dunder_unary":
		fn, err = declareDunderUnary(n, unit)
	case "dunder_binary":
		fn, err = declareDunderBinary(n, unit)
	case "dunder_branching":
		fn, err = declareDunderBranching(n, unit)
	default:
		panic("ir: unknown top-level declaration kind " + n.Kind())
	}
	if err != nil {
		mod.Diags.Add(pos, "%s", err)
		return
	}
	if err := mod.Functions.Declare(fn); err != nil {
		mod.Diags.Add(pos, "%s", err)
	}
}

// stackSig reads an optional "stack" field, defaulting to (0, 0) when absent.
func stackSig(n *syntax.Node) Signature {
	s := n.Field("stack")
	if s == nil {
		return Signature{}
	}
	return Signature{Params: atoi(mustField(s, "params")), Returns: atoi(mustField(s, "returns"))}
}

func declareStackFunc(n *syntax.Node, unit string) (*Function, error) {
	head := mustField(n, "head")
	name := strings.TrimPrefix(mustField(head, "name").Text(), "$")
	locals := 0
	if l := head.Field("locals"); l != nil {
		locals = atoi(l)
	}
	return &Function{
		Name:   name,
		Sig:    stackSig(head),
		Pos:    positionOf(n, unit),
		Kind:   BodyStackBody,
		Locals: locals,
		Body:   n,
	}, nil
}

func declareExternFunc(n *syntax.Node, unit string) (*Function, error) {
	name := strings.TrimPrefix(mustField(n, "name").Text(), "$")
	conv := strings.Trim(mustField(n, "call_convention").Text(), `"`)
	if conv != "default" && conv != "raw" {
		return nil, fmt.Errorf("extern $%s: unknown calling convention %q, expected \"default\" or \"raw\"", name, conv)
	}
	label := ""
	if l := n.Field("label"); l != nil {
		label = l.Text()
	}
	return &Function{
		Name:           name,
		Sig:            stackSig(n),
		Pos:            positionOf(n, unit),
		Kind:           BodyExternal,
		CallConvention: conv,
		ExternLabel:    label,
	}, nil
}

func declareDeferredFunc(n *syntax.Node, unit string) (*Function, error) {
	name := strings.TrimPrefix(mustField(n, "name").Text(), "$")
	return &Function{
		Name: name,
		Sig:  stackSig(n),
		Pos:  positionOf(n, unit),
		Kind: BodyDeferred,
	}, nil
}

func bindingNames(nodes []*syntax.Node) []string {
	names := make([]string, len(nodes))
	for i, n := range nodes {
		names[i] = n.Text()
	}
	return names
}

func declareInst(n *syntax.Node, unit string) (*Function, error) {
	head := mustField(n, "head")
	name := mustField(head, "name").Text()
	inputs := bindingNames(head.FieldAll("input"))
	outputs := bindingNames(head.FieldAll("output"))
	overload := RMAOverload{
		Pos:          positionOf(n, unit),
		Inputs:       inputs,
		Outputs:      outputs,
		Instructions: n.FieldAll("instruction"),
	}
	return &Function{
		Name:      name,
		Sig:       Signature{Params: len(inputs), Returns: len(outputs)},
		Pos:       positionOf(n, unit),
		Kind:      BodyRMABody,
		Overloads: []RMAOverload{overload},
	}, nil
}

func declareInstBranch(n *syntax.Node, unit string) (*Function, error) {
	head := mustField(n, "head")
	name := mustField(head, "name").Text()
	inputs := bindingNames(head.FieldAll("input"))
	label := mustField(head, "label").Text()
	branch := RMAOverload{
		Pos:          positionOf(n, unit),
		Inputs:       inputs,
		BranchTarget: label,
		Instructions: n.FieldAll("instruction"),
	}
	return &Function{
		Name:   name,
		Sig:    Signature{Params: len(inputs), Returns: 1},
		Pos:    positionOf(n, unit),
		Kind:   BodyRMABody,
		Branch: &branch,
	}, nil
}

func declareInstPermutation(n *syntax.Node, unit string) (*Function, error) {
	name := mustField(n, "name").Text()
	perm, err := ParsePermutation(mustField(n, "permutation"), unit)
	if err != nil {
		return nil, err
	}
	return &Function{
		Name: name,
		Sig:  Signature{Params: perm.Input, Returns: perm.Output()},
		Pos:  positionOf(n, unit),
		Kind: BodyPermutation,
		Perm: perm,
	}, nil
}

// synthOverload builds the single-instruction RMA overload dunder sugar desugars to: bindings named
// "a"/"b" feed mnemonic directly, writing its result back into "a".
func synthOverload(pos Position, mnemonic string, inputs []string, outputs []string, operands []string, branchTarget string) RMAOverload {
	instr := syntax.NewNode("rma_instruction", "", syntax.Range{})
	instr.AddField("mnemonic", syntax.NewNode("identifier", mnemonic, syntax.Range{}))
	for _, op := range operands {
		instr.AddField("operand", syntax.NewNode("operand_name", op, syntax.Range{}))
	}
	return RMAOverload{
		Pos:          pos,
		Inputs:       inputs,
		Outputs:      outputs,
		BranchTarget: branchTarget,
		Instructions: []*syntax.Node{instr},
	}
}

func declareDunderUnary(n *syntax.Node, unit string) (*Function, error) {
	name := mustField(n, "name").Text()
	instr := mustField(n, "instruction").Text()
	pos := positionOf(n, unit)
	overload := synthOverload(pos, instr, []string{"a"}, []string{"a"}, []string{"a", "a"}, "")
	return &Function{
		Name:      name,
		Sig:       Signature{Params: 1, Returns: 1},
		Pos:       pos,
		Kind:      BodyRMABody,
		Overloads: []RMAOverload{overload},
	}, nil
}

func declareDunderBinary(n *syntax.Node, unit string) (*Function, error) {
	name := mustField(n, "name").Text()
	instr := mustField(n, "instruction").Text()
	pos := positionOf(n, unit)
	overload := synthOverload(pos, instr, []string{"a", "b"}, []string{"a"}, []string{"a", "a", "b"}, "")
	return &Function{
		Name:      name,
		Sig:       Signature{Params: 2, Returns: 1},
		Pos:       pos,
		Kind:      BodyRMABody,
		Overloads: []RMAOverload{overload},
	}, nil
}

func declareDunderBranching(n *syntax.Node, unit string) (*Function, error) {
	name := mustField(n, "name").Text()
	instr := mustField(n, "instruction").Text()
	branchInstr := mustField(n, "branch").Text()
	pos := positionOf(n, unit)
	overload := synthOverload(pos, instr, []string{"a", "b"}, []string{"a"}, []string{"a", "a", "b"}, "")
	branch := synthOverload(pos, branchInstr, []string{"a", "b"}, nil, []string{"a", "b", "label"}, "label")
	return &Function{
		Name:      name,
		Sig:       Signature{Params: 2, Returns: 1},
		Pos:       pos,
		Kind:      BodyRMABody,
		Overloads: []RMAOverload{overload},
		Branch:    &branch,
	}, nil
}
