package messenger

import (
	"errors"
	"fmt"
)

// ErrorKind represents the category of a messenger error
type ErrorKind int

const (
	// KindInvalidMessageID indicates a message id outside 0-255
	KindInvalidMessageID ErrorKind = iota + 1
	// KindInvalidTypeSpec indicates a layout that cannot be compiled
	KindInvalidTypeSpec
	// KindHandshakeTimeout indicates no handshake frame arrived in time
	KindHandshakeTimeout
	// KindRunLoopFault indicates an error inside the background worker
	KindRunLoopFault
	// KindClosed indicates the messenger was closed
	KindClosed
	// KindAlreadyStarted indicates Start was called twice
	KindAlreadyStarted
)

// String returns a human-readable name for the error kind
func (k ErrorKind) String() string {
	switch k {
	case KindInvalidMessageID:
		return "Invalid Message ID"
	case KindInvalidTypeSpec:
		return "Invalid Type Spec"
	case KindHandshakeTimeout:
		return "Handshake Timeout"
	case KindRunLoopFault:
		return "Run Loop Fault"
	case KindClosed:
		return "Closed"
	case KindAlreadyStarted:
		return "Already Started"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error is returned by Register, Start and Err.
type Error struct {
	Kind    ErrorKind // Category of error
	Message string    // Human-readable reason, e.g. "Handshake Timed Out"
	Err     error     // Underlying error (if any)
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrInvalidMessageID = &Error{Kind: KindInvalidMessageID}
	ErrInvalidTypeSpec  = &Error{Kind: KindInvalidTypeSpec}
	ErrHandshakeTimeout = &Error{Kind: KindHandshakeTimeout}
	ErrRunLoopFault     = &Error{Kind: KindRunLoopFault}
	ErrClosed           = &Error{Kind: KindClosed}
	ErrAlreadyStarted   = &Error{Kind: KindAlreadyStarted}

	// ErrNilHandler is returned by Register when handler is nil.
	ErrNilHandler = errors.New("messenger: nil handler")
)

// HandshakeTimedOut is the failure reason recorded when the handshake expires.
const HandshakeTimedOut = "Handshake Timed Out"

// Error implements the error interface
func (e *Error) Error() string {
	switch {
	case e.Message == "" && e.Err == nil:
		return e.Kind.String()
	case e.Err != nil && e.Message == "":
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinel errors by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

// Reason returns the recorded failure reason.
func (e *Error) Reason() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func newError(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func fault(msg string, err error) *Error {
	return newError(KindRunLoopFault, msg, err)
}
