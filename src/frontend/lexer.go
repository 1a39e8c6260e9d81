// This lexer is based on, and copied from, Rob Pike's excellent talk on Go scanners, just as the
// lexer this package began life as. Link to the talk: https://www.youtube.com/watch?v=HxaD_trXwRE
//
// The lexer uses state functions stateFunc to define the lexer state. States allow the lexer to
// treat the same runes differently depending on context. The lexer operates on runes so the source
// language gets native UTF-8 support in string/char literals; identifiers are limited to ASCII
// letters, digits and underscores.
package frontend

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// stateFunc defines the state of the lexer. It returns the next state, or nil to stop.
type stateFunc func(*lexer) stateFunc

// itemType differentiates the tokens scanned by the lexer.
type itemType int

// item contains a lexeme scanned by the lexer and its position in the source stream.
type item struct {
	typ  itemType // Token type to emit.
	val  string   // Value of token, including any delimiters (quotes, sigils).
	line int      // Line of token in source stream, 1-indexed.
	pos  int      // Start column of token on its line, 1-indexed.
}

// lexer is a lexical scanner that walks a source string rune by rune and emits items.
type lexer struct {
	input       string
	start       int
	pos         int
	width       int
	line        int
	startOnLine int
	items       []item
}

// ---------------------
// ----- Constants -----
// ---------------------

const eof = 0

const (
	itemEOF itemType = iota
	itemError
	itemIdentifier
	itemFuncName   // $name
	itemRegister   // $123
	itemDataLabel  // .name
	itemMacro      // @name
	itemMem        // #123
	itemPort       // %name
	itemNumber     // 123, 0x7b, 0b1111011, 0o173
	itemChar       // 'a'
	itemCharEscape // '\n'
	itemString     // "text"
	itemKeyword
	itemArrow // ->
)

// keywords holds every reserved word of the surface grammar.
var keywords = map[string]bool{
	"bits": true, "minheap": true, "minstack": true,
	"func": true, "extern": true, "deferred": true,
	"inst": true, "branch": true, "unop": true, "binop": true,
	"const": true, "in": true, "out": true, "jump": true, "halt": true,
	"call": true, "ret": true, "get": true, "set": true,
}

// --------------------------
// ----- Item functions -----
// --------------------------

// String returns a print friendly string representation of the item.
func (i item) String() string {
	switch i.typ {
	case itemEOF:
		return "EOF"
	case itemError:
		return fmt.Sprintf("%s [ERROR]", i.val)
	}
	if len(i.val) > 20 {
		return fmt.Sprintf("%.17q... (line %d:%d)", i.val, i.line, i.pos)
	}
	return fmt.Sprintf("%q (line %d:%d)", i.val, i.line, i.pos)
}

// ---------------------------
// ----- Lexer functions -----
// ---------------------------

// newLexer creates a lexer over src and runs it to completion, buffering every item. The surface
// grammar is small enough that running eagerly, rather than concurrently with the parser the way
// the teacher lexer did, keeps the single-threaded compilation pass in section 5 honest.
func newLexer(src string) *lexer {
	l := &lexer{
		input:       src,
		line:        1,
		startOnLine: 1,
	}
	for state := lexGlobal; state != nil; {
		state = state(l)
	}
	return l
}

// next returns the next rune in the input, or eof, and advances the scanner.
func (l *lexer) next() rune {
	if l.pos >= len(l.input) {
		l.width = 0
		return eof
	}
	r, w := utf8.DecodeRuneInString(l.input[l.pos:])
	l.width = w
	l.pos += w
	return r
}

// backup steps back one rune. Can only be called once per call to next.
func (l *lexer) backup() {
	l.pos -= l.width
}

// peek returns the next rune without consuming it.
func (l *lexer) peek() rune {
	r := l.next()
	l.backup()
	return r
}

// ignore discards the pending lexeme, resetting the scan start to the current position.
func (l *lexer) ignore() {
	l.advanceLine()
	l.start = l.pos
}

// advanceLine updates line/column bookkeeping for the pending lexeme before it is discarded or emitted.
func (l *lexer) advanceLine() {
	text := l.input[l.start:l.pos]
	if n := strings.Count(text, "\n"); n > 0 {
		l.line += n
		l.startOnLine = len(text) - strings.LastIndex(text, "\n")
	} else {
		l.startOnLine += utf8.RuneCountInString(text)
	}
}

// current returns the text scanned so far for the pending lexeme.
func (l *lexer) current() string {
	return l.input[l.start:l.pos]
}

// emit appends the pending lexeme to the item buffer as typ and resets the scan start.
func (l *lexer) emit(typ itemType) {
	l.items = append(l.items, item{
		typ:  typ,
		val:  l.current(),
		line: l.line,
		pos:  l.startOnLine,
	})
	l.advanceLine()
	l.start = l.pos
}

// errorf emits an itemError item with a formatted message and stops the state machine.
func (l *lexer) errorf(format string, args ...interface{}) stateFunc {
	l.items = append(l.items, item{
		typ:  itemError,
		val:  fmt.Sprintf(format, args...),
		line: l.line,
		pos:  l.startOnLine,
	})
	return nil
}

// accept consumes the next rune if it is contained in valid.
func (l *lexer) accept(valid string) bool {
	if strings.ContainsRune(valid, l.next()) {
		return true
	}
	l.backup()
	return false
}

// acceptRun consumes a run of runes contained in valid.
func (l *lexer) acceptRun(valid string) {
	for strings.ContainsRune(valid, l.next()) {
	}
	l.backup()
}

func isAlpha(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isAlphaNumeric(r rune) bool {
	return isAlpha(r) || isDigit(r)
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\r'
}
