package compiler

import "unicode"

// Lexer holds all mutable state for a single scanning pass over src.
type Lexer struct {
	src  []rune
	pos  int // index of the next rune to consume
	line int // current 1-based source line
	col  int // current 1-based source column
}

func newLexer(src string) *Lexer {
	return &Lexer{src: []rune(src), pos: 0, line: 1, col: 1}
}

// peek returns the rune at the current position without advancing.
func (l *Lexer) peek() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

// advance consumes one rune and returns it.
func (l *Lexer) advance() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	r := l.src[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.src) && unicode.IsSpace(l.peek()) {
		l.advance()
	}
}

func (l *Lexer) atEnd() bool {
	return l.pos >= len(l.src)
}

// nextToken returns the next run of symbols, or false at end of input.
// Whitespace never breaks a run: "+ \n+" is a single run of two.
func (l *Lexer) nextToken() (Token, bool) {
	l.skipWhitespace()
	if l.atEnd() {
		return Token{}, false
	}

	line, col := l.line, l.col
	tok := Token{Symbol: l.advance(), Count: 1, Line: line, Col: col}
	if !coalescable(tok.Symbol) {
		return tok, true
	}

	for {
		l.skipWhitespace()
		if l.atEnd() || l.peek() != tok.Symbol {
			return tok, true
		}
		l.advance()
		tok.Count++
	}
}

// Lex filters whitespace out of src and coalesces runs of identical value and
// move symbols. Every other rune, recognised or not, becomes its own token;
// deciding what is legal is left to the parser.
func Lex(src string) []Token {
	l := newLexer(src)
	var tokens []Token
	for {
		tok, ok := l.nextToken()
		if !ok {
			return tokens
		}
		tokens = append(tokens, tok)
	}
}
