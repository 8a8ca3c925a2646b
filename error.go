package bpgsql

import (
	"fmt"
	"io"
	"runtime"
	"strings"

	"golang.org/x/xerrors"
)

// ErrorKind classifies every error this driver produces.
type ErrorKind int

const (
	// ErrorKindInterface covers protocol violations and driver misuse:
	// unrecognized message tags, unsupported authentication schemes,
	// malformed function-call responses, operations on closed handles.
	ErrorKindInterface ErrorKind = iota

	// ErrorKindOperational covers transport failures: the backend closed
	// the connection mid-read, or a send failed.
	ErrorKindOperational

	// ErrorKindDatabase is a statement failure reported by the server.
	ErrorKindDatabase

	// ErrorKindIntegrity is a database error whose message text looks
	// like a constraint violation.  The reclassification is a
	// best-effort text match, not a protocol guarantee.
	ErrorKindIntegrity

	// ErrorKindTimeout is returned by WaitForNotification when the
	// timeout elapses before a message begins.
	ErrorKindTimeout
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindInterface:
		return "interface"
	case ErrorKindOperational:
		return "operational"
	case ErrorKindDatabase:
		return "database"
	case ErrorKindIntegrity:
		return "integrity"
	case ErrorKindTimeout:
		return "timeout"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is the error type returned from every public entry point.
type Error struct {
	Kind    ErrorKind
	Message string

	// AuthCode holds the server's authentication request code when the
	// server asked for a scheme this client does not support.
	AuthCode int32

	cause error
}

func (e *Error) Error() string {
	return "bpgsql: " + e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

func interfaceErrorf(format string, a ...interface{}) *Error {
	return &Error{Kind: ErrorKindInterface, Message: fmt.Sprintf(format, a...)}
}

func operationalErrorf(cause error, format string, a ...interface{}) *Error {
	return &Error{
		Kind:    ErrorKindOperational,
		Message: fmt.Sprintf(format, a...),
		cause:   cause,
	}
}

func unsupportedAuth(code int32, format string, a ...interface{}) *Error {
	return &Error{
		Kind:     ErrorKindInterface,
		Message:  fmt.Sprintf(format, a...),
		AuthCode: code,
	}
}

// Substrings the server is known to emit in constraint-violation
// messages.  Matching is advisory: the text is free-form and locale
// dependent, so a miss only means the error stays a plain database
// error.
var integrityKeywords = []string{
	"duplicate key",
	"violates",
	"referential integrity",
}

// databaseError wraps server-reported error text, reclassifying
// constraint violations as integrity errors on a best-effort basis.
func databaseError(msg string) *Error {
	kind := ErrorKindDatabase
	lower := strings.ToLower(msg)
	for _, kw := range integrityKeywords {
		if strings.Contains(lower, kw) {
			kind = ErrorKindIntegrity
			break
		}
	}
	return &Error{Kind: kind, Message: msg}
}

// KindOf reports the ErrorKind of err if it is (or wraps) a driver
// Error.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if xerrors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// Any panic reaching errRecover during a protocol exchange is converted
// into the returned error.  Transport failures mark the connection
// broken: the stream position is no longer trustworthy afterwards.
func (cn *Conn) errRecover(err *error) {
	e := recover()
	switch v := e.(type) {
	case nil:
		// no error
	case runtime.Error:
		panic(v)
	case *Error:
		if v.Kind == ErrorKindOperational {
			cn.broken = true
		}
		*err = v
	case error:
		if v == io.EOF || v == io.ErrUnexpectedEOF {
			cn.broken = true
			*err = operationalErrorf(v, "connection to backend closed")
		} else {
			*err = v
		}
	default:
		panic(fmt.Sprintf("unexpected panic: %#v", e))
	}
}
