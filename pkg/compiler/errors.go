package compiler

import (
	"errors"
	"fmt"
)

// Kinds of analysis failure. Each kind is itself an error so callers can
// write errors.Is(err, compiler.UnclosedBlock).
const (
	UnexpectedEOF = ErrorKind(iota)
	UnclosedBlock
	SyntaxError
)

var strKind = []string{
	"unexpected end of input",
	"unclosed block",
	"syntax error",
}

// ErrorKind describes the nature of an analysis failure.
type ErrorKind int

func (k ErrorKind) Error() string {
	if int(k) >= 0 && int(k) < len(strKind) {
		return strKind[k]
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error describes an analysis failure and where it happened.
type Error struct {
	Kind ErrorKind
	Char rune // offending symbol when Kind is SyntaxError
	Line int
	Col  int
}

func (e *Error) Error() string {
	switch e.Kind {
	case SyntaxError:
		return fmt.Sprintf("line %d col %d: %v: unexpected %q", e.Line, e.Col, e.Kind, e.Char)
	case UnclosedBlock:
		return fmt.Sprintf("line %d col %d: %v: '[' is never closed", e.Line, e.Col, e.Kind)
	}
	return fmt.Sprintf("line %d col %d: %v", e.Line, e.Col, e.Kind)
}

// Unwrap exposes the kind. An unclosed block always means the input ended
// mid-structure, so it also unwraps to UnexpectedEOF.
func (e *Error) Unwrap() []error {
	if e.Kind == UnclosedBlock {
		return []error{UnclosedBlock, UnexpectedEOF}
	}
	return []error{e.Kind}
}

// IsIncomplete reports whether err means more input could still make the
// source valid.
func IsIncomplete(err error) bool {
	return errors.Is(err, UnexpectedEOF)
}
