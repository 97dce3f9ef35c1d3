package compiler

// Parser consumes the token slice produced by the Lexer and builds a Program.
//
// Grammar:
//
//	program = command* EOF
//	command = "+" | "-" | ">" | "<" | "." | "," | "#" | loop
//	loop    = "[" command* "]"
type Parser struct {
	tokens []Token
	pos    int
	opts   Options
}

func NewParser(tokens []Token, opts Options) *Parser {
	return &Parser{tokens: tokens, opts: opts}
}

// Parse builds the unoptimized program tree for tokens.
func Parse(tokens []Token, opts Options) (Program, error) {
	p := NewParser(tokens, opts)
	return p.parseBlock(nil)
}

func (p *Parser) atEnd() bool {
	return p.pos >= len(p.tokens)
}

// advance consumes and returns the current token.
func (p *Parser) advance() Token {
	tok := p.tokens[p.pos]
	p.pos++
	return tok
}

// parseBlock collects commands until the matching "]" of open, or until end
// of input when open is nil (top level).
func (p *Parser) parseBlock(open *Token) (Program, error) {
	var block Program

	for !p.atEnd() {
		tok := p.advance()

		var op Op
		switch tok.Symbol {
		case SymIncrement:
			if n := uint8(tok.Count); n != 0 {
				op = AddValue{Count: n}
			}
		case SymDecrement:
			if n := uint8(tok.Count); n != 0 {
				op = SubValue{Count: n}
			}
		case SymForward:
			op = MoveForward{Count: tok.Count}
		case SymBackward:
			op = MoveBackward{Count: tok.Count}
		case SymOutput:
			op = Output{}
		case SymInput:
			op = Input{}
		case SymLoopBegin:
			body, err := p.parseBlock(&tok)
			if err != nil {
				return nil, err
			}
			op = &Loop{Body: body}
		case SymLoopEnd:
			if open == nil {
				return nil, &Error{Kind: SyntaxError, Char: tok.Symbol, Line: tok.Line, Col: tok.Col}
			}
			return block, nil
		case SymDebug:
			if p.opts.DebugSymbol {
				op = DebugDump{}
				break
			}
			fallthrough
		default:
			if !p.opts.AllowComments {
				return nil, &Error{Kind: SyntaxError, Char: tok.Symbol, Line: tok.Line, Col: tok.Col}
			}
		}

		if op != nil {
			block = append(block, op)
		}
	}

	if open != nil {
		return nil, &Error{Kind: UnclosedBlock, Char: open.Symbol, Line: open.Line, Col: open.Col}
	}
	return block, nil
}
