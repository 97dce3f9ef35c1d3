// Package machine evaluates analyzed programs against a fixed-size,
// wrap-around byte tape.
package machine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"gobf/pkg/compiler"
)

// TapeSize is the number of cells on the tape.
const TapeSize = 30000

type Machine struct {
	Tape [TapeSize]byte
	Ptr  int

	// Input is read one byte per Input op. If nil, every read yields 0.
	Input io.Reader
	// Output receives one byte per Output op and the DebugDump text.
	// If nil, output is discarded.
	Output io.Writer

	// Logger, if set, receives debug records about each Run.
	Logger *slog.Logger

	// Steps counts executed operations across all runs.
	Steps uint64

	buf [1]byte
}

// NewMachine creates a machine with a zeroed tape and the pointer at cell 0.
func NewMachine(in io.Reader, out io.Writer) *Machine {
	return &Machine{Input: in, Output: out}
}

// Evaluate runs prog on a fresh machine. The tape is discarded when it
// returns.
func Evaluate(prog compiler.Program, in io.Reader, out io.Writer) error {
	return NewMachine(in, out).Run(prog)
}

// Reset zeroes the tape and moves the pointer back to cell 0.
func (m *Machine) Reset() {
	m.Tape = [TapeSize]byte{}
	m.Ptr = 0
	m.Steps = 0
}

// Run executes prog against the machine's current tape. A failing write
// aborts the run; tape changes made before the failure stay applied.
func (m *Machine) Run(prog compiler.Program) error {
	start := m.Steps
	err := m.runBlock(prog)
	if m.Logger != nil {
		m.Logger.Debug("run finished",
			"ops", prog.Size(),
			"steps", m.Steps-start,
			"ptr", m.Ptr,
			"err", err,
		)
	}
	return err
}

func (m *Machine) runBlock(block compiler.Program) error {
	for _, op := range block {
		m.Steps++
		switch o := op.(type) {
		case compiler.AddValue:
			m.Tape[m.Ptr] += o.Count
		case compiler.SubValue:
			m.Tape[m.Ptr] -= o.Count
		case compiler.MoveForward:
			m.Ptr = wrap(m.Ptr + o.Count)
		case compiler.MoveBackward:
			m.Ptr = wrap(m.Ptr - o.Count)
		case compiler.Output:
			if err := m.writeByte(m.Tape[m.Ptr]); err != nil {
				return &RuntimeError{Op: op, Ptr: m.Ptr, Err: err}
			}
		case compiler.Input:
			b, err := m.readByte()
			if err != nil {
				return &RuntimeError{Op: op, Ptr: m.Ptr, Err: err}
			}
			m.Tape[m.Ptr] = b
		case *compiler.Loop:
			for m.Tape[m.Ptr] != 0 {
				if err := m.runBlock(o.Body); err != nil {
					return err
				}
			}
		case compiler.ResetToZero:
			m.Tape[m.Ptr] = 0
		case compiler.TransferMultiply:
			dest := wrap(m.Ptr + o.Offset)
			product := m.Tape[m.Ptr] * o.Factor
			m.Tape[dest] += product
			m.Tape[m.Ptr] = 0
		case compiler.DebugDump:
			if err := m.dump(); err != nil {
				return &RuntimeError{Op: op, Ptr: m.Ptr, Err: err}
			}
		default:
			panic(fmt.Sprintf("machine: unknown op %T", op))
		}
	}
	return nil
}

// wrap maps any pointer position onto [0, TapeSize).
func wrap(p int) int {
	p %= TapeSize
	if p < 0 {
		p += TapeSize
	}
	return p
}

func (m *Machine) writeByte(b byte) error {
	if m.Output == nil {
		return nil
	}
	m.buf[0] = b
	_, err := m.Output.Write(m.buf[:])
	return err
}

// readByte reads exactly one byte. Exhausted input reads as 0.
func (m *Machine) readByte() (byte, error) {
	if m.Input == nil {
		return 0, nil
	}
	if br, ok := m.Input.(io.ByteReader); ok {
		b, err := br.ReadByte()
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		return b, err
	}
	_, err := io.ReadFull(m.Input, m.buf[:])
	if errors.Is(err, io.EOF) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return m.buf[0], nil
}

// dump writes the tape from cell 0 up to the fourth consecutive zero cell,
// formatted as "\n[1, 2, 0]\n".
func (m *Machine) dump() error {
	var sb strings.Builder
	sb.WriteString("\n[")
	zeros := 0
	for i, cell := range m.Tape {
		if cell == 0 {
			zeros++
		} else {
			zeros = 0
		}
		if zeros > 3 {
			break
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.Itoa(int(cell)))
	}
	sb.WriteString("]\n")

	if m.Output == nil {
		return nil
	}
	_, err := io.WriteString(m.Output, sb.String())
	return err
}
