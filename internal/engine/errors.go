package engine

import (
	"errors"
	"fmt"
)

// Domain errors for engine calls.
var (
	// ErrTransport indicates a network failure or a non-success HTTP status.
	ErrTransport = errors.New("engine: transport failure")

	// ErrMalformed indicates a payload missing required fields or with an invalid shape.
	ErrMalformed = errors.New("engine: malformed response")
)

// TransportError wraps a failed request with the operation that issued it.
// Status is zero when no HTTP response was received.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("engine %s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("engine %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// MalformedResponseError reports which field of a response could not be used.
type MalformedResponseError struct {
	Op    string
	Field string
	Err   error
}

func (e *MalformedResponseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("engine %s: malformed %s: %v", e.Op, e.Field, e.Err)
	}
	return fmt.Sprintf("engine %s: malformed response: %v", e.Op, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

func (e *MalformedResponseError) Is(target error) bool { return target == ErrMalformed }
