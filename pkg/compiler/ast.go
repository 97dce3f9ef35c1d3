package compiler

import (
	"fmt"
	"strings"
)

// Op is one step of a Program. The set of implementations is closed; the
// evaluator switches over the concrete types below.
type Op interface {
	opNode()
	String() string
}

// Program is an ordered sequence of operations. A Loop body is itself a
// Program, so a Program is the root of a tree.
type Program []Op

// AddValue adds Count to the current cell, modulo 256.
//
//	+++
//	^^^  AddValue{Count: 3}
type AddValue struct {
	Count uint8
}

// SubValue subtracts Count from the current cell, modulo 256.
type SubValue struct {
	Count uint8
}

// MoveForward advances the tape pointer by Count cells, wrapping.
//
//	>>
//	^^  MoveForward{Count: 2}
type MoveForward struct {
	Count int
}

// MoveBackward retreats the tape pointer by Count cells, wrapping.
type MoveBackward struct {
	Count int
}

// Output writes the current cell as one byte.
type Output struct{}

// Input reads one byte into the current cell; exhausted input reads as 0.
type Input struct{}

// Loop repeats Body while the current cell is nonzero. Body is never empty.
type Loop struct {
	Body Program
}

// ResetToZero sets the current cell to 0. Produced from [-].
type ResetToZero struct{}

// TransferMultiply adds cell*Factor to the cell at Offset from the pointer,
// then zeroes the current cell.
//
//	[->+++<]
//	^^^^^^^^  TransferMultiply{Offset: 1, Factor: 3}
type TransferMultiply struct {
	Offset int
	Factor uint8
}

// DebugDump writes the leading non-zero region of the tape to the output.
type DebugDump struct{}

func (AddValue) opNode()         {}
func (SubValue) opNode()         {}
func (MoveForward) opNode()      {}
func (MoveBackward) opNode()     {}
func (Output) opNode()           {}
func (Input) opNode()            {}
func (*Loop) opNode()            {}
func (ResetToZero) opNode()      {}
func (TransferMultiply) opNode() {}
func (DebugDump) opNode()        {}

func (o AddValue) String() string     { return fmt.Sprintf("Add(%d)", o.Count) }
func (o SubValue) String() string     { return fmt.Sprintf("Sub(%d)", o.Count) }
func (o MoveForward) String() string  { return fmt.Sprintf("Forward(%d)", o.Count) }
func (o MoveBackward) String() string { return fmt.Sprintf("Backward(%d)", o.Count) }
func (Output) String() string         { return "Output" }
func (Input) String() string          { return "Input" }
func (l *Loop) String() string        { return fmt.Sprintf("Loop%v", l.Body) }
func (ResetToZero) String() string    { return "ResetToZero" }
func (o TransferMultiply) String() string {
	return fmt.Sprintf("TransferMultiply(offset=%d, factor=%d)", o.Offset, o.Factor)
}
func (DebugDump) String() string { return "DebugDump" }

func (p Program) String() string {
	parts := make([]string, len(p))
	for i, op := range p {
		parts[i] = op.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Format renders p as an indented tree, one operation per line.
func (p Program) Format() string {
	var sb strings.Builder
	p.format(&sb, 0)
	return sb.String()
}

func (p Program) format(sb *strings.Builder, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, op := range p {
		if l, ok := op.(*Loop); ok {
			sb.WriteString(indent + "Loop\n")
			l.Body.format(sb, depth+1)
			continue
		}
		sb.WriteString(indent + op.String() + "\n")
	}
}

// Size counts every operation in the tree, loop nodes included.
func (p Program) Size() int {
	n := 0
	for _, op := range p {
		n++
		if l, ok := op.(*Loop); ok {
			n += l.Body.Size()
		}
	}
	return n
}
