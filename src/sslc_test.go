package main

import (
	"strings"
	"testing"

	"sslc/src/backend/emit"
	"sslc/src/frontend"
	"sslc/src/ir"
	"sslc/src/ir/lower"
)

// compile parses src as a single unit (no prelude) and lowers every stack-bodied function,
// returning the emitted RMA text. Test helper only; real entry points go through main.go.
func compile(t *testing.T, src string, opts emit.Options) (string, *ir.Module) {
	t.Helper()
	tree, err := frontend.Parse(src)
	if err != nil {
		t.Fatalf("parse error: %s", err)
	}
	mod := ir.NewModule()
	ir.Declare(tree, "<test>", mod)
	if err := mod.Functions.CheckComplete(); err != nil {
		t.Fatalf("incomplete registry: %s", err)
	}
	mod.Finalize()

	bodies := make(map[string]string)
	lowerer := lower.New(mod, lower.Options{})
	for _, name := range mod.Functions.Names() {
		fn, _ := mod.Functions.Lookup(name)
		if fn.Kind != ir.BodyStackBody {
			continue
		}
		body, err := lowerer.Function(fn)
		if err != nil {
			t.Fatalf("lowering %s: %s", name, err)
		}
		bodies[name] = body
	}
	if mod.Diags.HasErrors() {
		for _, e := range mod.Diags.Sorted() {
			t.Errorf("diagnostic: %s: %s", e.Pos, e.Message)
		}
		t.FailNow()
	}

	out, err := emit.Module(mod, bodies, lowerer.MaxRegs(), opts)
	if err != nil {
		t.Fatalf("emit error: %s", err)
	}
	return out, mod
}

// TestCompileIdentity exercises scenario S1: an empty $main that just returns.
func TestCompileIdentity(t *testing.T) {
	src := "bits 8\nminheap 1\nminstack 1\nfunc $main 0 -> 0 {\n\tret\n}\n"
	out, _ := compile(t, src, emit.Options{})

	for _, want := range []string{"BITS 8", "MINHEAP 1", "MINSTACK 1", "MINREG 0", "CAL .fn_main", "HLT", "RET"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

// TestCompileConstOut exercises scenario S2: a constant pushed and written to a port.
func TestCompileConstOut(t *testing.T) {
	src := "bits 8\nminheap 1\nminstack 1\nfunc $main 0 -> 0 {\n\tconst 42\n\tout %text\n\thalt\n}\n"
	out, _ := compile(t, src, emit.Options{})

	if !strings.Contains(out, "0x2A") {
		t.Errorf("output missing the constant 42 (0x2A):\n%s", out)
	}
	if !strings.Contains(out, "OUT") {
		t.Errorf("output missing an OUT instruction:\n%s", out)
	}
	if !strings.Contains(out, "HLT") {
		t.Errorf("output missing HLT:\n%s", out)
	}
}

// TestCompileSignatureConflict exercises scenario S4: two incompatible declarations of the same
// function must be reported as a diagnostic, not silently accepted.
func TestCompileSignatureConflict(t *testing.T) {
	src := "bits 8\nminheap 1\nminstack 1\n" +
		"func $foo 1 -> 1 {\n\tret\n}\n" +
		"func $foo 2 -> 1 {\n\tret\n}\n" +
		"func $main 0 -> 0 {\n\tret\n}\n"

	tree, err := frontend.Parse(src)
	if err != nil {
		t.Fatalf("parse error: %s", err)
	}
	mod := ir.NewModule()
	ir.Declare(tree, "<test>", mod)
	if !mod.Diags.HasErrors() {
		t.Fatal("expected a signature conflict diagnostic, got none")
	}
}

// TestCompileLiteralOverflow exercises scenario S5: a data literal that exceeds the declared bit
// width is rejected, while one that fits is accepted.
func TestCompileLiteralOverflow(t *testing.T) {
	overflow := "bits 8\nminheap 1\nminstack 1\n.x 256\nfunc $main 0 -> 0 {\n\tret\n}\n"
	tree, err := frontend.Parse(overflow)
	if err != nil {
		t.Fatalf("parse error: %s", err)
	}
	mod := ir.NewModule()
	ir.Declare(tree, "<test>", mod)
	mod.Finalize()
	if _, err := emit.Module(mod, map[string]string{"main": ""}, 0, emit.Options{}); err == nil {
		t.Fatal("expected a literal overflow error for .x 256 under bits 8, got none")
	}

	fits := "bits 8\nminheap 1\nminstack 1\n.x 255\nfunc $main 0 -> 0 {\n\tret\n}\n"
	tree, err = frontend.Parse(fits)
	if err != nil {
		t.Fatalf("parse error: %s", err)
	}
	mod = ir.NewModule()
	ir.Declare(tree, "<test>", mod)
	mod.Finalize()
	if _, err := emit.Module(mod, map[string]string{"main": ""}, 0, emit.Options{}); err != nil {
		t.Fatalf(".x 255 under bits 8 should not overflow: %s", err)
	}
}

// TestCompileDeterministic asserts two compiles of the same source produce byte-identical output,
// per the determinism invariant.
func TestCompileDeterministic(t *testing.T) {
	src := "bits 8\nminheap 1\nminstack 1\n" +
		"func $main 0 -> 0 {\n\tconst 1\n\tconst 2\n\tcall $add\n\thalt\n}\n" +
		"func $add 2 -> 2 {\n\tret\n}\n"

	out1, _ := compile(t, src, emit.Options{})
	out2, _ := compile(t, src, emit.Options{})
	if out1 != out2 {
		t.Fatalf("compilation is not deterministic:\n--- run 1 ---\n%s\n--- run 2 ---\n%s", out1, out2)
	}
}
