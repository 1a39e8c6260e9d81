// tree.go walks the buffered item stream produced by the lexer with a recursive-descent parser and
// builds a syntax.Node tree. This replaces the goyacc-generated parser the teacher project used: the
// grammar is simple enough, and deliberately out of scope for the core compiler, that a hand-written
// descent keeps things in one unambiguous place instead of a generated parser table.
package frontend

import (
	"fmt"

	"sslc/src/frontend/syntax"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// parser walks a buffered slice of items, building syntax.Node values as it goes.
type parser struct {
	items []item
	pos   int
}

// ---------------------
// ----- Functions -----
// ---------------------

// Parse lexes and parses src into a syntax tree. A non-nil error means the source text did not
// conform to the surface grammar; it carries no position detail beyond the line/column embedded in
// the message, since the concrete grammar is an external collaborator to the core compiler.
func Parse(src string) (*syntax.Node, error) {
	l := newLexer(src)
	if len(l.items) > 0 && l.items[len(l.items)-1].typ == itemError {
		e := l.items[len(l.items)-1]
		return nil, fmt.Errorf("line %d:%d: %s", e.line, e.pos, e.val)
	}
	p := &parser{items: l.items}
	return p.parseProgram()
}

func (p *parser) peek() item {
	if p.pos >= len(p.items) {
		return item{typ: itemEOF}
	}
	return p.items[p.pos]
}

func (p *parser) next() item {
	it := p.peek()
	if p.pos < len(p.items) {
		p.pos++
	}
	return it
}

func (p *parser) atEOF() bool {
	return p.peek().typ == itemEOF
}

// isKeyword reports whether the next item is the keyword kw.
func (p *parser) isKeyword(kw string) bool {
	it := p.peek()
	return it.typ == itemKeyword && it.val == kw
}

func (p *parser) expectKeyword(kw string) (item, error) {
	if !p.isKeyword(kw) {
		return item{}, p.unexpected(kw)
	}
	return p.next(), nil
}

func (p *parser) expectType(typ itemType, what string) (item, error) {
	if p.peek().typ != typ {
		return item{}, p.unexpected(what)
	}
	return p.next(), nil
}

func (p *parser) expectPunct(r rune) error {
	if p.peek().typ != itemType(r) {
		return p.unexpected(string(r))
	}
	p.next()
	return nil
}

func (p *parser) unexpected(want string) error {
	it := p.peek()
	return fmt.Errorf("line %d:%d: expected %s, got %q", it.line, it.pos, want, it.val)
}

func rng(start, end item) syntax.Range {
	return syntax.Range{
		StartPoint: syntax.Point{Row: start.line - 1, Column: start.pos - 1},
		EndPoint:   syntax.Point{Row: end.line - 1, Column: end.pos - 1 + len(end.val)},
	}
}

func leaf(kind string, it item) *syntax.Node {
	return syntax.NewNode(kind, it.val, rng(it, it))
}

// parseProgram parses the whole compilation unit: a run of headers, data definitions and function
// declarations, in any order, matching how the original grammar intermixes them.
func (p *parser) parseProgram() (*syntax.Node, error) {
	first := p.peek()
	n := syntax.NewNode("program", "", rng(first, first))
	for !p.atEOF() {
		switch {
		case p.isKeyword("bits") || p.isKeyword("minheap") || p.isKeyword("minstack"):
			h, err := p.parseHeader()
			if err != nil {
				return nil, err
			}
			n.AddField("headers", h)
		case p.peek().typ == itemDataLabel:
			d, err := p.parseDataDef()
			if err != nil {
				return nil, err
			}
			n.AddField("data", d)
		case p.isKeyword("func"):
			f, err := p.parseFunc()
			if err != nil {
				return nil, err
			}
			n.AddField("code", f)
		case p.isKeyword("extern"):
			f, err := p.parseExternFunc()
			if err != nil {
				return nil, err
			}
			n.AddField("code", f)
		case p.isKeyword("deferred"):
			f, err := p.parseDeferredFunc()
			if err != nil {
				return nil, err
			}
			n.AddField("code", f)
		case p.isKeyword("inst"):
			f, err := p.parseInst()
			if err != nil {
				return nil, err
			}
			n.AddField("code", f)
		case p.isKeyword("branch"):
			f, err := p.parseInstBranch()
			if err != nil {
				return nil, err
			}
			n.AddField("code", f)
		case p.isKeyword("unop"):
			f, err := p.parseDunderUnary()
			if err != nil {
				return nil, err
			}
			n.AddField("code", f)
		case p.isKeyword("binop"):
			f, err := p.parseDunderBinary()
			if err != nil {
				return nil, err
			}
			n.AddField("code", f)
		default:
			return nil, p.unexpected("top-level declaration")
		}
	}
	return n, nil
}

// parseHeader parses a single `bits N` / `minheap N` / `minstack N` line. The node's kind is the
// header name itself, matching how the header value is later dispatched on by name.
func (p *parser) parseHeader() (*syntax.Node, error) {
	kw := p.next()
	val, err := p.expectType(itemNumber, "number")
	if err != nil {
		return nil, err
	}
	n := syntax.NewNode(kw.val, kw.val, rng(kw, val))
	n.AddField("value", leaf("number", val))
	return n, nil
}

// parseDataDef parses `.label <value>` where value is a literal or `[ literal* ]`.
func (p *parser) parseDataDef() (*syntax.Node, error) {
	label := p.next() // itemDataLabel
	val, err := p.parseDataValue()
	if err != nil {
		return nil, err
	}
	n := syntax.NewNode("data_def", "", rng(label, label))
	n.AddField("label", syntax.NewNode("label_name", label.val[1:], rng(label, label)))
	n.AddField("value", val)
	return n, nil
}

func (p *parser) parseDataValue() (*syntax.Node, error) {
	if p.peek().typ == itemType('[') {
		open := p.next()
		arr := syntax.NewNode("array", "", rng(open, open))
		for p.peek().typ != itemType(']') {
			lit, err := p.parseLiteral()
			if err != nil {
				return nil, err
			}
			arr.AddField("element", lit)
		}
		p.next() // ']'
		return arr, nil
	}
	return p.parseLiteral()
}

// parseLiteral parses one of the literal kinds from component A: number, char, char escape, macro
// reference, data label reference, function name reference or memory address reference.
func (p *parser) parseLiteral() (*syntax.Node, error) {
	it := p.peek()
	switch it.typ {
	case itemNumber:
		p.next()
		return leaf("number", it), nil
	case itemChar:
		p.next()
		return leaf("char", it), nil
	case itemCharEscape:
		p.next()
		return leaf("char_escape", it), nil
	case itemMacro:
		p.next()
		return leaf("macro", it), nil
	case itemDataLabel:
		p.next()
		return leaf("data_label", it), nil
	case itemFuncName:
		p.next()
		return leaf("function_name", it), nil
	case itemMem:
		p.next()
		return leaf("mem", it), nil
	default:
		return nil, p.unexpected("literal")
	}
}

// parseStackSig parses an optional `N -> M` stack signature. If absent, callers treat the function
// as (0, 0), matching the grammar's implicit default.
func (p *parser) parseStackSig() (*syntax.Node, error) {
	if p.peek().typ != itemNumber {
		return nil, nil
	}
	params := p.next()
	if _, err := p.expectType(itemArrow, "'->'"); err != nil {
		return nil, err
	}
	returns, err := p.expectType(itemNumber, "number")
	if err != nil {
		return nil, err
	}
	n := syntax.NewNode("stack", "", rng(params, returns))
	n.AddField("params", leaf("number", params))
	n.AddField("returns", leaf("number", returns))
	return n, nil
}

// parseFunc parses `func $name N -> M [+ L] { instruction* }`.
func (p *parser) parseFunc() (*syntax.Node, error) {
	kw, _ := p.expectKeyword("func")
	name, err := p.expectType(itemFuncName, "function name")
	if err != nil {
		return nil, err
	}
	head := syntax.NewNode("func_head", "", rng(kw, name))
	head.AddField("name", leaf("function_name", name))
	stack, err := p.parseStackSig()
	if err != nil {
		return nil, err
	}
	if stack != nil {
		head.AddField("stack", stack)
	}
	if p.peek().typ == itemType('+') {
		p.next()
		locals, err := p.expectType(itemNumber, "locals count")
		if err != nil {
			return nil, err
		}
		head.AddField("locals", leaf("number", locals))
	}
	n := syntax.NewNode("func", "", rng(kw, kw))
	n.AddField("head", head)
	if err := p.expectPunct('{'); err != nil {
		return nil, err
	}
	for p.peek().typ != itemType('}') {
		ins, err := p.parseStackInstruction()
		if err != nil {
			return nil, err
		}
		n.AddField("instruction", ins)
	}
	p.next() // '}'
	return n, nil
}

// parseExternFunc parses `extern "CONV" func $name N -> M [= label];`.
func (p *parser) parseExternFunc() (*syntax.Node, error) {
	kw, _ := p.expectKeyword("extern")
	conv, err := p.expectType(itemString, "calling convention string")
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("func"); err != nil {
		return nil, err
	}
	name, err := p.expectType(itemFuncName, "function name")
	if err != nil {
		return nil, err
	}
	n := syntax.NewNode("extern_func", "", rng(kw, name))
	n.AddField("call_convention", leaf("string", conv))
	n.AddField("name", leaf("function_name", name))
	stack, err := p.parseStackSig()
	if err != nil {
		return nil, err
	}
	if stack != nil {
		n.AddField("stack", stack)
	}
	if p.peek().typ == itemType('=') {
		p.next()
		label, err := p.expectType(itemIdentifier, "raw label")
		if err != nil {
			return nil, err
		}
		n.AddField("label", leaf("label_name", label))
	}
	return n, p.expectPunct(';')
}

// parseDeferredFunc parses `deferred func $name N -> M;`.
func (p *parser) parseDeferredFunc() (*syntax.Node, error) {
	kw, _ := p.expectKeyword("deferred")
	if _, err := p.expectKeyword("func"); err != nil {
		return nil, err
	}
	name, err := p.expectType(itemFuncName, "function name")
	if err != nil {
		return nil, err
	}
	n := syntax.NewNode("deferred_func", "", rng(kw, name))
	n.AddField("name", leaf("function_name", name))
	stack, err := p.parseStackSig()
	if err != nil {
		return nil, err
	}
	if stack != nil {
		n.AddField("stack", stack)
	}
	return n, p.expectPunct(';')
}

// parseBindings parses `< a, b, c >`, returning the binding name items.
func (p *parser) parseBindings() ([]*syntax.Node, error) {
	if err := p.expectPunct('<'); err != nil {
		return nil, err
	}
	var out []*syntax.Node
	for p.peek().typ != itemType('>') {
		name, err := p.expectType(itemIdentifier, "binding name")
		if err != nil {
			return nil, err
		}
		out = append(out, leaf("binding", name))
		if p.peek().typ == itemType(',') {
			p.next()
		}
	}
	p.next() // '>'
	return out, nil
}

// parseInst parses either `inst name (N : i0 i1 …);` (a permutation instruction) or
// `inst name <in> [-> <out>] { rma_instruction* }` (an RMA overload).
func (p *parser) parseInst() (*syntax.Node, error) {
	kw, _ := p.expectKeyword("inst")
	name, err := p.expectType(itemIdentifier, "instruction name")
	if err != nil {
		return nil, err
	}
	if p.peek().typ == itemType('(') {
		return p.parseInstPermutationTail(kw, name)
	}

	head := syntax.NewNode("inst_head", "", rng(kw, name))
	head.AddField("name", leaf("identifier", name))
	inputs, err := p.parseBindings()
	if err != nil {
		return nil, err
	}
	for _, in := range inputs {
		head.AddField("input", in)
	}
	if p.peek().typ == itemArrow {
		p.next()
		outputs, err := p.parseBindings()
		if err != nil {
			return nil, err
		}
		for _, out := range outputs {
			head.AddField("output", out)
		}
	}
	n := syntax.NewNode("inst", "", rng(kw, kw))
	n.AddField("head", head)
	if err := p.expectPunct('{'); err != nil {
		return nil, err
	}
	for p.peek().typ != itemType('}') {
		ins, err := p.parseRmaInstruction()
		if err != nil {
			return nil, err
		}
		n.AddField("instruction", ins)
	}
	p.next() // '}'
	return n, nil
}

// parseInstPermutationTail parses the `(N : i0 i1 …);` tail of `inst name (...)`.
func (p *parser) parseInstPermutationTail(kw, name item) (*syntax.Node, error) {
	open := p.next() // '('
	in, err := p.expectType(itemNumber, "permutation arity")
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(':'); err != nil {
		return nil, err
	}
	sig := syntax.NewNode("permutation_sig", "", rng(open, open))
	sig.AddField("input", leaf("number", in))
	for p.peek().typ != itemType(')') {
		idx, err := p.expectType(itemNumber, "permutation index")
		if err != nil {
			return nil, err
		}
		sig.AddField("index", leaf("number", idx))
	}
	p.next() // ')'
	n := syntax.NewNode("inst_permutation", "", rng(kw, name))
	n.AddField("name", leaf("identifier", name))
	n.AddField("permutation", sig)
	return n, p.expectPunct(';')
}

// parseInstBranch parses `branch name <in> label { rma_instruction* }`.
func (p *parser) parseInstBranch() (*syntax.Node, error) {
	kw, _ := p.expectKeyword("branch")
	name, err := p.expectType(itemIdentifier, "instruction name")
	if err != nil {
		return nil, err
	}
	head := syntax.NewNode("inst_branch_head", "", rng(kw, name))
	head.AddField("name", leaf("identifier", name))
	inputs, err := p.parseBindings()
	if err != nil {
		return nil, err
	}
	for _, in := range inputs {
		head.AddField("input", in)
	}
	label, err := p.expectType(itemIdentifier, "branch destination binding")
	if err != nil {
		return nil, err
	}
	head.AddField("label", leaf("binding", label))
	n := syntax.NewNode("inst_branch", "", rng(kw, kw))
	n.AddField("head", head)
	if err := p.expectPunct('{'); err != nil {
		return nil, err
	}
	for p.peek().typ != itemType('}') {
		ins, err := p.parseRmaInstruction()
		if err != nil {
			return nil, err
		}
		n.AddField("instruction", ins)
	}
	p.next() // '}'
	return n, nil
}

// parseDunderUnary parses `unop name instr;`.
func (p *parser) parseDunderUnary() (*syntax.Node, error) {
	kw, _ := p.expectKeyword("unop")
	name, err := p.expectType(itemIdentifier, "instruction name")
	if err != nil {
		return nil, err
	}
	instr, err := p.expectType(itemIdentifier, "mnemonic")
	if err != nil {
		return nil, err
	}
	n := syntax.NewNode("dunder_unary", "", rng(kw, instr))
	n.AddField("name", leaf("identifier", name))
	n.AddField("instruction", leaf("identifier", instr))
	return n, p.expectPunct(';')
}

// parseDunderBinary parses `binop name instr [branch instr2];`, producing dunder_binary or, if a
// branch mnemonic trails it, dunder_branching.
func (p *parser) parseDunderBinary() (*syntax.Node, error) {
	kw, _ := p.expectKeyword("binop")
	name, err := p.expectType(itemIdentifier, "instruction name")
	if err != nil {
		return nil, err
	}
	instr, err := p.expectType(itemIdentifier, "mnemonic")
	if err != nil {
		return nil, err
	}
	if p.isKeyword("branch") {
		p.next()
		branchInstr, err := p.expectType(itemIdentifier, "branch mnemonic")
		if err != nil {
			return nil, err
		}
		n := syntax.NewNode("dunder_branching", "", rng(kw, branchInstr))
		n.AddField("name", leaf("identifier", name))
		n.AddField("instruction", leaf("identifier", instr))
		n.AddField("branch", leaf("identifier", branchInstr))
		return n, p.expectPunct(';')
	}
	n := syntax.NewNode("dunder_binary", "", rng(kw, instr))
	n.AddField("name", leaf("identifier", name))
	n.AddField("instruction", leaf("identifier", instr))
	return n, p.expectPunct(';')
}

// parseRmaInstruction parses one line of an RMA overload or branch body: either `name:` defining a
// function-local label, or `MNEMONIC operand*`.
func (p *parser) parseRmaInstruction() (*syntax.Node, error) {
	if p.peek().typ == itemIdentifier && p.pos+1 < len(p.items) && p.items[p.pos+1].typ == itemType(':') {
		name := p.next()
		p.next() // ':'
		n := syntax.NewNode("rma_label_def", "", rng(name, name))
		n.AddField("name", leaf("identifier", name))
		return n, nil
	}
	mnemonic, err := p.expectType(itemIdentifier, "mnemonic")
	if err != nil {
		return nil, err
	}
	n := syntax.NewNode("rma_instruction", "", rng(mnemonic, mnemonic))
	n.AddField("mnemonic", leaf("identifier", mnemonic))
	for !p.atOperandBoundary(mnemonic.line) {
		op, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		n.AddField("operand", op)
	}
	return n, nil
}

// atOperandBoundary reports whether the parser has reached the end of an RMA instruction's operand
// list: either the closing brace of the enclosing body or the start of the next instruction/label.
// An instruction's operands share its mnemonic's line, so any token on a later line starts the next
// instruction or label.
func (p *parser) atOperandBoundary(line int) bool {
	if p.peek().typ == itemType('}') {
		return true
	}
	if p.peek().line != line {
		return true
	}
	if p.peek().typ == itemIdentifier && p.pos+1 < len(p.items) {
		// A bare label definition ends this operand list.
		return p.items[p.pos+1].typ == itemType(':')
	}
	return false
}

// parseOperand parses a single RMA instruction operand: a bare name (bound input/output, internal
// label, or branch destination), a data label reference, a function reference, a numeric literal, a
// memory address, a port, a register, or a character literal.
func (p *parser) parseOperand() (*syntax.Node, error) {
	it := p.peek()
	switch it.typ {
	case itemIdentifier:
		p.next()
		return leaf("operand_name", it), nil
	case itemDataLabel:
		p.next()
		return leaf("data_label", it), nil
	case itemFuncName:
		p.next()
		return leaf("function_name", it), nil
	case itemNumber:
		p.next()
		return leaf("number", it), nil
	case itemMem:
		p.next()
		return leaf("mem", it), nil
	case itemPort:
		p.next()
		return leaf("port", it), nil
	case itemRegister:
		p.next()
		return leaf("register", it), nil
	case itemChar:
		p.next()
		return leaf("char", it), nil
	case itemCharEscape:
		p.next()
		return leaf("char_escape", it), nil
	default:
		return nil, p.unexpected("operand")
	}
}

// parseStackInstruction parses one instruction inside a stack-body function: an intrinsic
// (const/in/out/jump/branch/halt/call/ret/get/set), a label definition with its height annotation, a
// bare user instruction/function invocation, or a branch-to call.
func (p *parser) parseStackInstruction() (*syntax.Node, error) {
	if p.peek().typ == itemIdentifier && p.pos+1 < len(p.items) && p.items[p.pos+1].typ == itemType('[') {
		return p.parseStackLabelDef()
	}
	if p.isKeyword("branch") && p.pos+2 < len(p.items) && p.items[p.pos+1].typ == itemType('-') &&
		p.items[p.pos+2].typ == itemIdentifier && p.items[p.pos+2].val == "to" {
		// The lexer splits "branch-to" into the keyword branch, '-' and the identifier "to"; fold
		// the three back into one "branch-to" identifier for the branch-to path of parseStackInvoke.
		kw := p.peek()
		p.pos += 2
		p.items[p.pos] = item{typ: itemIdentifier, val: "branch-to", line: kw.line, pos: kw.pos}
	}
	if p.peek().typ == itemIdentifier {
		return p.parseStackInvoke()
	}
	kw := p.peek()
	if kw.typ != itemKeyword {
		return nil, p.unexpected("stack instruction")
	}
	switch kw.val {
	case "const":
		p.next()
		lit, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		n := syntax.NewNode("stack_instruction", "", rng(kw, kw))
		n.AddField("op", leaf("identifier", kw))
		n.AddField("literal", lit)
		return n, nil
	case "in", "out":
		p.next()
		port, err := p.expectType(itemPort, "port")
		if err != nil {
			return nil, err
		}
		n := syntax.NewNode("stack_instruction", "", rng(kw, port))
		n.AddField("op", leaf("identifier", kw))
		n.AddField("port", leaf("port", port))
		return n, nil
	case "jump":
		p.next()
		label, err := p.expectType(itemIdentifier, "label")
		if err != nil {
			return nil, err
		}
		n := syntax.NewNode("stack_instruction", "", rng(kw, label))
		n.AddField("op", leaf("identifier", kw))
		n.AddField("label", leaf("operand_name", label))
		return n, nil
	case "branch":
		p.next()
		label, err := p.expectType(itemIdentifier, "label")
		if err != nil {
			return nil, err
		}
		n := syntax.NewNode("stack_instruction", "", rng(kw, label))
		n.AddField("op", leaf("identifier", kw))
		n.AddField("label", leaf("operand_name", label))
		return n, nil
	case "halt", "ret":
		p.next()
		n := syntax.NewNode("stack_instruction", "", rng(kw, kw))
		n.AddField("op", leaf("identifier", kw))
		return n, nil
	case "call":
		p.next()
		fn, err := p.expectType(itemFuncName, "function name")
		if err != nil {
			return nil, err
		}
		n := syntax.NewNode("stack_instruction", "", rng(kw, fn))
		n.AddField("op", leaf("identifier", kw))
		n.AddField("function", leaf("function_name", fn))
		return n, nil
	case "get", "set":
		p.next()
		idx, err := p.expectType(itemNumber, "local index")
		if err != nil {
			return nil, err
		}
		n := syntax.NewNode("stack_instruction", "", rng(kw, idx))
		n.AddField("op", leaf("identifier", kw))
		n.AddField("index", leaf("number", idx))
		return n, nil
	default:
		return nil, p.unexpected("stack instruction")
	}
}

// parseStackLabelDef parses `name[height]:` marking a branch-join point.
func (p *parser) parseStackLabelDef() (*syntax.Node, error) {
	name := p.next()
	p.next() // '['
	height, err := p.expectType(itemNumber, "stack height")
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(']'); err != nil {
		return nil, err
	}
	if err := p.expectPunct(':'); err != nil {
		return nil, err
	}
	n := syntax.NewNode("stack_label_def", "", rng(name, name))
	n.AddField("name", leaf("identifier", name))
	n.AddField("height", leaf("number", height))
	return n, nil
}

// parseStackInvoke parses a bare instruction/function call, optionally in `branch-to label name`
// form used to call a user instruction's branch overload.
func (p *parser) parseStackInvoke() (*syntax.Node, error) {
	name := p.next()
	if name.val == "branch-to" {
		label, err := p.expectType(itemIdentifier, "label")
		if err != nil {
			return nil, err
		}
		fn, err := p.expectType(itemIdentifier, "instruction name")
		if err != nil {
			return nil, err
		}
		n := syntax.NewNode("stack_branch_to", "", rng(name, fn))
		n.AddField("label", leaf("operand_name", label))
		n.AddField("function", leaf("identifier", fn))
		return n, nil
	}
	n := syntax.NewNode("stack_invoke", "", rng(name, name))
	n.AddField("name", leaf("identifier", name))
	return n, nil
}
