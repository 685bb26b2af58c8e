package plumbing

import "fmt"

// ErrorCode enumerates the closed set of error conditions the core
// exposes to callers, per the error taxonomy.
type ErrorCode string

const (
	CodeMissingParameter  ErrorCode = "MissingParameter"
	CodeNotFound          ErrorCode = "NotFound"
	CodeAlreadyExists     ErrorCode = "AlreadyExists"
	CodeInvalidRefName    ErrorCode = "InvalidRefName"
	CodeInvalidFilepath   ErrorCode = "InvalidFilepath"
	CodeObjectType        ErrorCode = "ObjectType"
	CodeObjectHashMismatch ErrorCode = "ObjectHashMismatch"
	CodePackCorrupt       ErrorCode = "PackCorrupt"
	CodeIndexCorrupt      ErrorCode = "IndexCorrupt"
	CodeFastForward       ErrorCode = "FastForward"
	CodeMergeConflict     ErrorCode = "MergeConflict"
	CodeRefMismatch       ErrorCode = "RefMismatch"
	CodeRemoteCapability  ErrorCode = "RemoteCapability"
	CodeUnknownTransport  ErrorCode = "UnknownTransport"
	CodeHTTP              ErrorCode = "Http"
	CodeIO                ErrorCode = "Io"
	CodeMultipleErrors    ErrorCode = "MultipleErrors"
)

// Error is the closed error type returned at every command boundary. It
// always names the caller operation that raised it, per spec.
type Error struct {
	Caller string
	Code   ErrorCode
	Data   map[string]any
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Caller, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Caller, e.Code, e.Data)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds an Error for a given caller/code/data, optionally
// wrapping an underlying error.
func NewError(caller string, code ErrorCode, err error, data map[string]any) *Error {
	return &Error{Caller: caller, Code: code, Data: data, Err: err}
}

// MultiError accumulates several errors from a batch-like operation
// (e.g. git.add across many pathspecs).
type MultiError struct {
	Caller string
	Errs   []error
}

func (e *MultiError) Error() string {
	return fmt.Sprintf("%s: %d errors: %v", e.Caller, len(e.Errs), e.Errs)
}

func (e *MultiError) Unwrap() []error { return e.Errs }

// PermanentError wraps an unrecoverable transport-layer error, mirroring
// the teacher's plumbing/error.go.
type PermanentError struct{ Err error }

func NewPermanentError(err error) *PermanentError {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

func (e *PermanentError) Error() string { return fmt.Sprintf("permanent client error: %s", e.Err) }
func (e *PermanentError) Unwrap() error { return e.Err }

// UnexpectedError wraps an error that should never occur in practice
// (programmer error / impossible state).
type UnexpectedError struct{ Err error }

func NewUnexpectedError(err error) *UnexpectedError { return &UnexpectedError{Err: err} }
func (e *UnexpectedError) Error() string            { return fmt.Sprintf("unexpected client error: %s", e.Err) }
func (e *UnexpectedError) Unwrap() error            { return e.Err }
