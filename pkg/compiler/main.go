// Package compiler turns tape-machine source text into an optimized program
// tree ready for the evaluator in package machine.
//
// Pipeline: source → Lex (filter + run-length coalescing) → Parse (nested
// loops) → Optimize (prune empty loops, rewrite loop idioms) → Program
package compiler
