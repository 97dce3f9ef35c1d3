package machine

import (
	"errors"
	"fmt"

	"gobf/pkg/compiler"
)

// ErrIO is matched by every RuntimeError.
var ErrIO = errors.New("I/O failure")

// RuntimeError describes an I/O failure that aborted a run.
type RuntimeError struct {
	Op  compiler.Op // operation that failed
	Ptr int         // pointer position at the failure
	Err error       // underlying reader or writer error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("machine: %v at cell %d: %v: %v", e.Op, e.Ptr, ErrIO, e.Err)
}

func (e *RuntimeError) Unwrap() []error {
	return []error{ErrIO, e.Err}
}
