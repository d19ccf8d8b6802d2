package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
)

var (
	// ErrTransport is the sentinel wrapped by [TransportError].
	ErrTransport = errors.New("transport failure")
	// ErrReleased is returned when reading a response whose body has
	// already been consumed or closed.
	ErrReleased = errors.New("can't read a released response")
)

// TransportError is returned by [Client.Execute] when the connection could
// not be opened or the response headers could not be read.
type TransportError struct {
	Method Method
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%v: %s %s: %v", ErrTransport, e.Method, e.URL, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

// Timeout reports whether the failure was a connect or read timeout.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, os.ErrDeadlineExceeded) || errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}

	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}
