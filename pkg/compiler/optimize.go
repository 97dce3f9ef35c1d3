package compiler

// Optimize rewrites prog bottom-up: loop bodies are optimized first, loops
// left empty are dropped, then each surviving loop is matched against the
// known idioms. The input tree is not modified.
func Optimize(prog Program) Program {
	return optimizeBlock(prog, true)
}

// prune drops empty loops without rewriting idioms.
func prune(prog Program) Program {
	return optimizeBlock(prog, false)
}

func optimizeBlock(block Program, rewrite bool) Program {
	var out Program
	for _, op := range block {
		l, ok := op.(*Loop)
		if !ok {
			out = append(out, op)
			continue
		}

		body := optimizeBlock(l.Body, rewrite)
		if len(body) == 0 {
			continue // can never change the cell, drop it
		}
		if rewrite {
			if idiom, ok := matchIdiom(body); ok {
				out = append(out, idiom)
				continue
			}
		}
		out = append(out, &Loop{Body: body})
	}
	return out
}

// matchIdiom recognises the two closed-form loop shapes:
//
//	[-]            → ResetToZero
//	[->>+++<<]     → TransferMultiply, plus the three reorderings of the moves
//	                 and the decrement.
//
// Only exact body shapes match. Anything else, including bodies that would be
// equivalent after data-flow analysis, stays a generic loop.
func matchIdiom(body Program) (Op, bool) {
	switch len(body) {
	case 1:
		if sub, ok := body[0].(SubValue); ok && sub.Count == 1 {
			return ResetToZero{}, true
		}
	case 4:
		if isDecrementOne(body[0]) {
			if off, factor, ok := matchTransfer(body[1], body[2], body[3]); ok {
				return TransferMultiply{Offset: off, Factor: factor}, true
			}
		}
		if isDecrementOne(body[3]) {
			if off, factor, ok := matchTransfer(body[0], body[1], body[2]); ok {
				return TransferMultiply{Offset: off, Factor: factor}, true
			}
		}
	}
	return nil, false
}

func isDecrementOne(op Op) bool {
	sub, ok := op.(SubValue)
	return ok && sub.Count == 1
}

// matchTransfer matches move(k), add(f), move back(k) and returns the signed
// destination offset.
func matchTransfer(there, add, back Op) (int, uint8, bool) {
	a, ok := add.(AddValue)
	if !ok {
		return 0, 0, false
	}
	switch m := there.(type) {
	case MoveForward:
		if b, ok := back.(MoveBackward); ok && b.Count == m.Count {
			return m.Count, a.Count, true
		}
	case MoveBackward:
		if b, ok := back.(MoveForward); ok && b.Count == m.Count {
			return -m.Count, a.Count, true
		}
	}
	return 0, 0, false
}
