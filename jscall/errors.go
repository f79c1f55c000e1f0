package jscall

import (
	"errors"
	"fmt"
)

// Status is the category of a host call failure.
type Status int

const (
	StatusOK Status = iota
	StatusInvalidArg
	StatusObjectExpected
	StatusFunctionExpected
	StatusGenericFailure
	StatusPendingException
	StatusCancelled
	StatusQueueFull
	StatusClosing
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "Ok"
	case StatusInvalidArg:
		return "InvalidArg"
	case StatusObjectExpected:
		return "ObjectExpected"
	case StatusFunctionExpected:
		return "FunctionExpected"
	case StatusGenericFailure:
		return "GenericFailure"
	case StatusPendingException:
		return "PendingException"
	case StatusCancelled:
		return "Cancelled"
	case StatusQueueFull:
		return "QueueFull"
	case StatusClosing:
		return "Closing"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

var (
	// ErrInvalidCallback reports a host value that cannot be bound as a callback.
	ErrInvalidCallback = errors.New("invalid callback")
	// ErrUnknownReturnValue reports a host return value of an unrecognized shape.
	ErrUnknownReturnValue = errors.New("unknown return value")
	// ErrQueueFull reports that the host call queue rejected a call.
	ErrQueueFull = errors.New("call queue full")
	// ErrClosing reports that the host runtime or the callback is gone.
	ErrClosing = errors.New("host runtime closing")
)

// Error is a host call failure.
//
// Expected and Owner are set for unknown return values: the pretty name of the
// Go type the caller asked for and of the callback type that made the call.
type Error struct {
	Status   Status
	Reason   string
	Expected string
	Owner    string

	kind  error
	cause error
}

// NewError returns an Error for status. Statuses with a sentinel
// (FunctionExpected, QueueFull, Closing) match it with errors.Is.
func NewError(status Status, reason string) *Error {
	e := &Error{Status: status, Reason: reason}
	switch status {
	case StatusFunctionExpected:
		e.kind = ErrInvalidCallback
	case StatusQueueFull:
		e.kind = ErrQueueFull
	case StatusClosing:
		e.kind = ErrClosing
	}
	return e
}

// WithCause records the underlying error and returns e.
func (e *Error) WithCause(err error) *Error {
	e.cause = err
	return e
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Status, e.Reason)
}

func (e *Error) Is(target error) bool {
	return e.kind != nil && target == e.kind
}

func (e *Error) Unwrap() error {
	return e.cause
}

func unknownReturnValue(hostType, expected, owner string) *Error {
	var reason string
	if owner == "" {
		reason = fmt.Sprintf("UNKNOWN_RETURN_VALUE. Cannot convert %s to `%s`.", hostType, expected)
	} else {
		reason = fmt.Sprintf("UNKNOWN_RETURN_VALUE. Cannot convert %s to `%s` in %s.", hostType, expected, owner)
	}
	return &Error{
		Status:   StatusInvalidArg,
		Reason:   reason,
		Expected: expected,
		Owner:    owner,
		kind:     ErrUnknownReturnValue,
	}
}
