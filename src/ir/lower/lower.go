// Package lower implements the stack-to-register lowering engine: it walks a stack-bodied
// function's instruction sequence and emits register-machine text, driving a regalloc.Allocation
// through each instruction's effect and calling Normalize wherever code reaches a join point
// (a label, a jump, or a branch) so every predecessor agrees on the live registers' shape.
package lower

import (
	"fmt"
	"strconv"
	"strings"

	"sslc/src/backend/regalloc"
	"sslc/src/frontend/syntax"
	"sslc/src/ir"
	"sslc/src/ir/rma"
	"sslc/src/util"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Options controls lowering behavior exposed on the CLI.
type Options struct {
	// GarbageLocals leaves newly entered locals uninitialized instead of zeroing them.
	GarbageLocals bool
}

// Lowerer lowers every stack-bodied function of a Module, tracking the highest register index used
// across the whole pass so the emitter can report it as MINREG.
type Lowerer struct {
	mod     *ir.Module
	opts    Options
	maxRegs int
}

// ---------------------
// ----- Functions -----
// ---------------------

// New returns a Lowerer over mod. mod.Finalize must already have run, since literal resolution
// needs final data and function addresses.
func New(mod *ir.Module, opts Options) *Lowerer {
	return &Lowerer{mod: mod, opts: opts}
}

// MaxRegs returns the highest register index touched by any lowered function so far.
func (l *Lowerer) MaxRegs() int {
	return l.maxRegs
}

// touch records reg as having been used, for MINREG bookkeeping.
func (l *Lowerer) touch(reg int) {
	if reg > l.maxRegs {
		l.maxRegs = reg
	}
}

// Function lowers fn's stack body to register-machine text. fn.Kind must be BodyStackBody.
func (l *Lowerer) Function(fn *ir.Function) (string, error) {
	var w strings.Builder
	alloc := regalloc.Normal(fn.Sig.Params)
	for _, reg := range alloc.Snapshot() {
		l.touch(reg)
	}
	util.Log.Tracef("lowering $%s (%d -> %d)", fn.Name, fn.Sig.Params, fn.Sig.Returns)
	if !l.opts.GarbageLocals {
		for k := 0; k < fn.Locals; k++ {
			fmt.Fprintf(&w, "MOV $L%d 0\n", k)
		}
	}
	for _, instr := range fn.Body.FieldAll("instruction") {
		if err := l.statement(&w, alloc, fn, instr); err != nil {
			return "", err
		}
		util.Log.Tracef("  %s: stack%s", instr.Kind(), alloc.String())
	}
	return w.String(), nil
}

// statement lowers one instruction of a stack body: an intrinsic, a label definition, a named
// instruction/permutation invocation, or a branch-to call.
func (l *Lowerer) statement(w *strings.Builder, alloc *regalloc.Allocation, fn *ir.Function, n *syntax.Node) error {
	switch n.Kind() {
	case "stack_label_def":
		return l.labelDef(w, alloc, fn, n)
	case "stack_invoke":
		return l.invoke(w, alloc, fn, n)
	case "stack_branch_to":
		return l.branchTo(w, alloc, fn, n)
	case "stack_instruction":
		return l.intrinsic(w, alloc, fn, n)
	default:
		panic("lower: unknown stack instruction kind " + n.Kind())
	}
}

func (l *Lowerer) labelDef(w *strings.Builder, alloc *regalloc.Allocation, fn *ir.Function, n *syntax.Node) error {
	name := n.Field("name").Text()
	height, _ := strconv.Atoi(n.Field("height").Text())
	if alloc.Len() != height {
		return fmt.Errorf("label %q declares height %d but %d values are live", name, height, alloc.Len())
	}
	l.normalizeTo(w, alloc)
	fmt.Fprintf(w, "%s:\n", ir.LocalLabel(fn.Name, name))
	return nil
}

// normalizeTo runs Normalize and records the registers it touched.
func (l *Lowerer) normalizeTo(w *strings.Builder, alloc *regalloc.Allocation) {
	before := alloc.Len()
	_ = alloc.Normalize(w, &l.maxRegs)
	if before > l.maxRegs {
		l.maxRegs = before
	}
}

func (l *Lowerer) intrinsic(w *strings.Builder, alloc *regalloc.Allocation, fn *ir.Function, n *syntax.Node) error {
	op := n.Field("op").Text()
	switch op {
	case "const":
		lit, err := ir.ParseLiteral(n.Field("literal"), fn.Name)
		if err != nil {
			return err
		}
		v, err := lit.Resolve(l.mod, l.mod.Headers.Bits)
		if err != nil {
			return err
		}
		reg := alloc.ApplyNext()
		l.touch(reg)
		fmt.Fprintf(w, "IMM $%d %s\n", reg, ir.FormatHex(v))
	case "in":
		port := n.Field("port").Text()
		reg := alloc.ApplyNext()
		l.touch(reg)
		fmt.Fprintf(w, "IN $%d %s\n", reg, port)
	case "out":
		port := n.Field("port").Text()
		reg := alloc.ApplyPop1()
		l.touch(reg)
		fmt.Fprintf(w, "OUT %s $%d\n", port, reg)
	case "jump":
		label := n.Field("label").Text()
		l.normalizeTo(w, alloc)
		fmt.Fprintf(w, "JMP %s\n", ir.LocalLabel(fn.Name, label))
	case "branch":
		label := n.Field("label").Text()
		l.normalizeTo(w, alloc)
		cond := alloc.Top()
		alloc.Pop(1)
		fmt.Fprintf(w, "BNZ %s $%d\n", ir.LocalLabel(fn.Name, label), cond)
	case "halt":
		fmt.Fprintf(w, "HLT\n")
	case "ret":
		if alloc.Len() != fn.Sig.Returns {
			return fmt.Errorf("function %q returns %d values but %d are live at ret", fn.Name, fn.Sig.Returns, alloc.Len())
		}
		l.normalizeTo(w, alloc)
		fmt.Fprintf(w, "RET\n")
	case "call":
		name := strings.TrimPrefix(n.Field("function").Text(), "$")
		callee, ok := l.mod.Functions.Lookup(name)
		if !ok || !callee.IsCallable() {
			return fmt.Errorf("call to undefined function $%s", name)
		}
		l.call(w, alloc, callee)
	case "get":
		idx, _ := strconv.Atoi(n.Field("index").Text())
		reg := alloc.ApplyNext()
		l.touch(reg)
		fmt.Fprintf(w, "MOV $%d $L%d\n", reg, idx)
	case "set":
		idx, _ := strconv.Atoi(n.Field("index").Text())
		reg := alloc.ApplyPop1()
		l.touch(reg)
		fmt.Fprintf(w, "MOV $L%d $%d\n", idx, reg)
	default:
		panic("lower: unknown stack intrinsic " + op)
	}
	return nil
}

// relocate reorders alloc's live registers into order (a permutation of its own contents placed in
// a new grouping) and normalizes, used both to stage call/instruction arguments into their expected
// low registers without disturbing the rest of the live stack, and to restore canonical form
// afterward. It returns the allocation representing the new canonical state.
func (l *Lowerer) relocate(w *strings.Builder, order []int) *regalloc.Allocation {
	a := regalloc.FromOrder(order)
	l.normalizeTo(w, a)
	return a
}

// call lowers a `call $name` intrinsic: the top fn.Sig.Params values are relocated into registers
// 1..Params (the convention every stack-bodied function assumes its arguments arrive in), CAL is
// emitted, and the Returns values the callee leaves in registers 1..Returns are relocated back onto
// the top of the caller's stack.
func (l *Lowerer) call(w *strings.Builder, alloc *regalloc.Allocation, callee *ir.Function) {
	all := alloc.Snapshot()
	p := callee.Sig.Params
	args := append([]int{}, all[len(all)-p:]...)
	rest := append([]int{}, all[:len(all)-p]...)

	staged := l.relocate(w, append(append([]int{}, args...), rest...))
	_ = staged
	fmt.Fprintf(w, "CAL %s\n", ir.FuncLabel(callee.Name))

	after := append(makeRange(p+1, p+len(rest)), makeRange(1, callee.Sig.Returns)...)
	final := l.relocate(w, after)
	alloc.ReplaceAll(final.Snapshot())
}

// invoke lowers a `stack_invoke` reference to a named instruction or permutation.
func (l *Lowerer) invoke(w *strings.Builder, alloc *regalloc.Allocation, fn *ir.Function, n *syntax.Node) error {
	name := n.Field("name").Text()
	target, ok := l.mod.Functions.Lookup(name)
	if !ok {
		return fmt.Errorf("use of undeclared instruction %q", name)
	}
	switch target.Kind {
	case ir.BodyPermutation:
		if err := alloc.ApplyPermutation(target.Perm); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	case ir.BodyRMABody:
		actual := alloc.Get(target.Sig.Params)
		overload, err := rma.Select(target, actual)
		if err != nil {
			return err
		}
		return l.invokeOverload(w, alloc, fn, target, overload, "")
	default:
		return fmt.Errorf("%q is not an invocable instruction", name)
	}
}

// branchTo lowers `branch-to label name`: name must declare a branch overload, which is invoked with
// its bound branch-destination operand substituted for the resolved local label.
func (l *Lowerer) branchTo(w *strings.Builder, alloc *regalloc.Allocation, fn *ir.Function, n *syntax.Node) error {
	label := n.Field("label").Text()
	name := n.Field("function").Text()
	target, ok := l.mod.Functions.Lookup(name)
	if !ok || target.Branch == nil {
		return fmt.Errorf("%q has no branch overload", name)
	}
	return l.invokeOverload(w, alloc, fn, target, target.Branch, ir.LocalLabel(fn.Name, label))
}

// invokeOverload stages overload's input bindings into registers 1..len(Inputs), the rest of the live
// stack into the registers immediately after, and its output bindings into the registers above that
// (any output name shared with an input, as in a dunder-sugar in-place accumulation, keeps resolving
// to the input's register instead of getting a second one), emits its instructions with operand names substituted for those positional registers
// (and, for a branch overload, the bound destination substituted for branchLabel), then relocates its
// output bindings back onto the top of the live stack.
func (l *Lowerer) invokeOverload(w *strings.Builder, alloc *regalloc.Allocation, owner *ir.Function, target *ir.Function, overload *ir.RMAOverload, branchLabel string) error {
	all := alloc.Snapshot()
	p := len(overload.Inputs)
	args := append([]int{}, all[len(all)-p:]...)
	rest := append([]int{}, all[:len(all)-p]...)

	l.relocate(w, append(append([]int{}, args...), rest...))

	bindings := make(map[string]int, len(overload.Inputs)+len(overload.Outputs))
	for i, name := range overload.Inputs {
		bindings[name] = i + 1
	}
	for i, name := range overload.Outputs {
		if _, bound := bindings[name]; !bound {
			bindings[name] = p + len(rest) + i + 1
		}
	}
	branchBinding := overload.BranchTarget
	for _, instr := range overload.Instructions {
		if err := l.writeOverloadInstruction(w, instr, bindings, branchBinding, branchLabel); err != nil {
			return err
		}
	}

	outs := make([]int, len(overload.Outputs))
	for i, name := range overload.Outputs {
		outs[i] = bindings[name]
	}
	after := append(makeRange(p+1, p+len(rest)), outs...)
	final := l.relocate(w, after)
	alloc.ReplaceAll(final.Snapshot())
	return nil
}

func (l *Lowerer) writeOverloadInstruction(w *strings.Builder, instr *syntax.Node, bindings map[string]int, branchBinding, branchLabel string) error {
	mnemonic := instr.Field("mnemonic").Text()
	fmt.Fprint(w, strings.ToUpper(mnemonic))
	for _, op := range instr.FieldAll("operand") {
		text, err := l.operandText(op, bindings, branchBinding, branchLabel)
		if err != nil {
			return err
		}
		fmt.Fprint(w, " ", text)
	}
	fmt.Fprint(w, "\n")
	return nil
}

func (l *Lowerer) operandText(op *syntax.Node, bindings map[string]int, branchBinding, branchLabel string) (string, error) {
	switch op.Kind() {
	case "operand_name":
		name := op.Text()
		if reg, ok := bindings[name]; ok {
			l.touch(reg)
			return fmt.Sprintf("$%d", reg), nil
		}
		if branchBinding != "" && name == branchBinding {
			return branchLabel, nil
		}
		return "", fmt.Errorf("unbound operand %q", name)
	case "register":
		return op.Text(), nil
	case "number":
		return op.Text(), nil
	case "mem":
		return op.Text(), nil
	case "data_label":
		return ir.DataLabel(strings.TrimPrefix(op.Text(), ".")), nil
	case "function_name":
		return ir.FuncLabel(strings.TrimPrefix(op.Text(), "$")), nil
	case "char", "char_escape":
		lit, err := ir.ParseLiteral(op, "")
		if err != nil {
			return "", err
		}
		return ir.FormatHex(lit.Num), nil
	default:
		panic("lower: unknown operand kind " + op.Kind())
	}
}

func makeRange(lo, hi int) []int {
	if hi < lo {
		return nil
	}
	out := make([]int, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		out = append(out, i)
	}
	return out
}
