package compiler

import "fmt"

// Options selects the analysis policy. The zero value is strict mode: every
// rune that is not one of the eight commands is a syntax error.
type Options struct {
	// AllowComments skips unrecognised runes instead of rejecting them.
	AllowComments bool
	// DebugSymbol makes '#' a DebugDump command.
	DebugSymbol bool
	// NoOptimize keeps idiom loops as generic loops. Empty loops are
	// still pruned.
	NoOptimize bool
}

// Analyze lexes, parses and optimizes src. On error no partial program is
// returned.
func Analyze(src string, opts Options) (Program, error) {
	tokens := Lex(src)

	tree, err := Parse(tokens, opts)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}

	if opts.NoOptimize {
		return prune(tree), nil
	}
	return Optimize(tree), nil
}
