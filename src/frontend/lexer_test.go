package frontend

import "testing"

// TestLexerBasic checks that a small SSL snippet tokenizes into the expected item sequence,
// covering headers, a data declaration, and a function body referencing a port.
func TestLexerBasic(t *testing.T) {
	src := "bits 8\n.msg 42\nfunc $main 0 -> 0 {\n\tconst 42\n\tout %text\n\thalt\n}\n"

	exp := []itemType{
		itemKeyword, itemNumber,
		itemDataLabel, itemNumber,
		itemKeyword, itemFuncName, itemNumber, itemArrow, itemNumber, itemType('{'),
		itemKeyword, itemNumber,
		itemKeyword, itemPort,
		itemKeyword,
		itemType('}'),
		itemEOF,
	}

	l := newLexer(src)
	if len(l.items) != len(exp) {
		t.Fatalf("expected %d tokens, got %d: %v", len(exp), len(l.items), l.items)
	}
	for i, it := range l.items {
		if it.typ != exp[i] {
			t.Errorf("token %d: expected type %v, got %v (%q)", i, exp[i], it.typ, it.val)
		}
	}
}

// TestLexerNumberPrefixes checks that every supported numeric base prefix lexes as itemNumber.
func TestLexerNumberPrefixes(t *testing.T) {
	for _, s := range []string{"0x2A", "0b101010", "0o52", "42"} {
		l := newLexer(s)
		if len(l.items) != 2 {
			t.Fatalf("%q: expected 2 tokens (number, EOF), got %d", s, len(l.items))
		}
		if l.items[0].typ != itemNumber {
			t.Errorf("%q: expected itemNumber, got %v", s, l.items[0].typ)
		}
	}
}

// TestLexerRegisterAndMem checks that $N lexes as a register reference and #N as a memory address,
// distinct from $name function references and .name data labels.
func TestLexerRegisterAndMem(t *testing.T) {
	l := newLexer("$1 $main #2 .data")
	want := []itemType{itemRegister, itemFuncName, itemMem, itemDataLabel, itemEOF}
	if len(l.items) != len(want) {
		t.Fatalf("expected %d tokens, got %d: %v", len(want), len(l.items), l.items)
	}
	for i, it := range l.items {
		if it.typ != want[i] {
			t.Errorf("token %d: expected %v, got %v (%q)", i, want[i], it.typ, it.val)
		}
	}
}
