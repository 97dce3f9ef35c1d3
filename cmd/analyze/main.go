package main

import (
	"flag"
	"fmt"
	"os"

	"gobf/pkg/compiler"
	"gobf/pkg/utils"
)

const testSource = `++++++++[>++++[>++>+++>+++>+<<<<-]>+>+>->>+[<]<-]>>.>---.+++++++..+++.>>.<-.<.+++.------.--------.>>+.>++.`

func main() {
	comments := flag.Bool("comments", false, "skip unrecognised characters")
	debug := flag.Bool("debug", false, "treat '#' as a tape dump command")
	flag.Parse()

	src := testSource
	if flag.NArg() > 0 {
		var err error
		src, _, err = utils.ResolveSource(flag.Arg(0))
		if err != nil {
			fmt.Fprintln(os.Stderr, "read error:", err)
			os.Exit(1)
		}
	}
	opts := compiler.Options{AllowComments: *comments, DebugSymbol: *debug}

	fmt.Printf("Source:\n%s\n\n", src)

	// Lex
	tokens := compiler.Lex(src)
	fmt.Printf("Tokens (%d)\n", len(tokens))
	for _, tok := range tokens {
		fmt.Println(" ", tok)
	}
	fmt.Println()

	// Parse
	tree, err := compiler.Parse(tokens, opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, "parse error:", err)
		os.Exit(1)
	}
	fmt.Printf("Tree (%d ops)\n", tree.Size())
	fmt.Print(tree.Format())
	fmt.Println()

	// Optimize
	prog := compiler.Optimize(tree)
	fmt.Printf("Optimized (%d ops)\n", prog.Size())
	fmt.Print(prog.Format())
}
