package connector

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind is the closed set of normalized connector failure categories.
// Transport-specific errors (HTTP status codes, SSH handshake failures,
// socket errors) are always mapped into one of these before they leave the
// connector.
type ErrorKind string

const (
	ConnectError         ErrorKind = "connect-error"
	AuthError            ErrorKind = "auth-error"
	Timeout              ErrorKind = "timeout"
	UnsupportedOperation ErrorKind = "unsupported-operation"
	RemoteRejected       ErrorKind = "remote-rejected"
)

// Retryable reports whether a failure of this kind should be retried with
// the next candidate connector. Operation-level rejections are terminal:
// another channel would fail the same way.
func (k ErrorKind) Retryable() bool {
	switch k {
	case ConnectError, AuthError, Timeout:
		return true
	}
	return false
}

// Error is a normalized connector failure.
type Error struct {
	Kind   ErrorKind
	Conn   Kind   // connector variant that produced the error
	Op     string // "probe", "execute", "apply", "verify"
	Detail string
	Err    error // underlying transport error, may be nil
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Conn, e.Op, e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a normalized connector error.
func NewError(kind ErrorKind, conn Kind, op, detail string, err error) *Error {
	return &Error{Kind: kind, Conn: conn, Op: op, Detail: detail, Err: err}
}

// KindOf extracts the ErrorKind from an error chain. Errors that did not
// originate from a connector are treated as ConnectError.
func KindOf(err error) ErrorKind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ConnectError
}

// Retryable reports whether err warrants falling back to the next candidate.
func Retryable(err error) bool {
	return KindOf(err).Retryable()
}

// normalizeNetErr maps raw transport errors into a connector Error.
func normalizeNetErr(conn Kind, op string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(Timeout, conn, op, "deadline exceeded", err)
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return NewError(Timeout, conn, op, "network timeout", err)
	}
	return NewError(ConnectError, conn, op, "", err)
}
