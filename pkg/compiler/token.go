package compiler

import "fmt"

// Command symbols of the language.
const (
	SymIncrement rune = '+'
	SymDecrement rune = '-'
	SymForward   rune = '>'
	SymBackward  rune = '<'
	SymOutput    rune = '.'
	SymInput     rune = ','
	SymLoopBegin rune = '['
	SymLoopEnd   rune = ']'
	SymDebug     rune = '#' // only a command when Options.DebugSymbol is set
)

// coalescable reports whether consecutive copies of r collapse into one run.
func coalescable(r rune) bool {
	switch r {
	case SymIncrement, SymDecrement, SymForward, SymBackward:
		return true
	}
	return false
}

// Token is one run of identical symbols produced by the Lexer.
type Token struct {
	Symbol rune
	Count  int // run length; always 1 for non-coalescable symbols
	Line   int // 1-based line of the first symbol in the run
	Col    int // 1-based column of the first symbol in the run
}

func (t Token) String() string {
	return fmt.Sprintf("%q x%-5d  line %d col %d", t.Symbol, t.Count, t.Line, t.Col)
}
