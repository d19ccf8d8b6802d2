package dispatch

import (
	"errors"
	"fmt"
)

var (
	ErrPoolClosed = errors.New("pool closed")
	ErrNilTask    = errors.New("task must not be nil")
	ErrPanic      = errors.New("dispatched task panicked")
)

// PanicError carries a value recovered from a panicking task.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%v: %v", ErrPanic, e.Value)
}

// Unwrap exposes ErrPanic, plus the panic value when it is an error.
func (e *PanicError) Unwrap() []error {
	if err, ok := e.Value.(error); ok {
		return []error{ErrPanic, err}
	}
	return []error{ErrPanic}
}
