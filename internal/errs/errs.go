// Package errs defines the closed set of failure kinds shared by every server
// in the host.
//
// A failure is tagged with its Kind where it originates (listener, limiter,
// codec, runtime). Dispatch loops then decide what to do with it by reading
// the tag instead of inspecting concrete error types:
//
//   - KindInvalidState:     operation not allowed in the current lifecycle state
//   - KindInvalidArgument:  bad construction parameter (port, capacity)
//   - KindMalformedMessage: undersized or truncated wire payload
//   - KindTransientIO:      socket error during accept, receive or handle
//   - KindCancellation:     expected shutdown signal
//   - KindDisposed:         use of a torn-down resource
//   - KindUnexpected:       anything else
//
// Use errors.Is(err, errs.ErrInvalidState) (and friends) to test for a kind.
package errs

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
)

// Kind is the failure category of an error.
type Kind uint8

const (
	KindUnexpected Kind = iota
	KindInvalidState
	KindInvalidArgument
	KindMalformedMessage
	KindTransientIO
	KindCancellation
	KindDisposed
)

func (k Kind) String() string {
	switch k {
	case KindInvalidState:
		return "invalid-state"
	case KindInvalidArgument:
		return "invalid-argument"
	case KindMalformedMessage:
		return "malformed-message"
	case KindTransientIO:
		return "transient-io"
	case KindCancellation:
		return "cancellation"
	case KindDisposed:
		return "disposed"
	default:
		return "unexpected"
	}
}

// Sentinels, one per kind. Every *Error matches the sentinel of its kind.
var (
	ErrUnexpected       = errors.New("unexpected error")
	ErrInvalidState     = errors.New("invalid state")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrMalformedMessage = errors.New("malformed message")
	ErrTransientIO      = errors.New("transient i/o error")
	ErrCancelled        = errors.New("cancelled")
	ErrDisposed         = errors.New("disposed")
)

var sentinels = [...]error{
	KindUnexpected:       ErrUnexpected,
	KindInvalidState:     ErrInvalidState,
	KindInvalidArgument:  ErrInvalidArgument,
	KindMalformedMessage: ErrMalformedMessage,
	KindTransientIO:      ErrTransientIO,
	KindCancellation:     ErrCancelled,
	KindDisposed:         ErrDisposed,
}

// Error is a failure tagged with its Kind and the operation that produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op == "" {
		return msg
	}
	return e.Op + ": " + msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	return int(e.Kind) < len(sentinels) && target == sentinels[e.Kind]
}

// New returns an *Error of the given kind with a formatted message.
func New(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap tags err with kind. A nil err yields nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Classify returns the kind of err.
//
// Errors built by this package carry their kind already. Foreign errors fall
// back to a small set of well-known conditions: context cancellation and
// closed sockets are cancellation, timeouts and other net errors are
// transient I/O. Everything else is unexpected.
func Classify(err error) Kind {
	if err == nil {
		return KindUnexpected
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancellation
	case errors.Is(err, net.ErrClosed):
		return KindCancellation
	case errors.Is(err, os.ErrDeadlineExceeded):
		return KindTransientIO
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return KindTransientIO
	}
	return KindUnexpected
}
