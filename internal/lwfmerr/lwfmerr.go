// Package lwfmerr classifies the error taxonomy of §7: transient vs.
// persistent storage errors, event-evaluation errors, dispatch errors,
// remote-not-found, malformed input, and serialization errors. The store
// and site bridge wrap their failures in an *Error. The event processor
// logs the errors it meets and carries on without returning them; the
// façade does not absorb errors: it returns them to its caller as it
// receives them.
package lwfmerr

import "fmt"

// Code names one error class from the taxonomy.
type Code int

const (
	CodeUnknown Code = iota
	CodeStorageTransient
	CodeStoragePersistent
	CodeEventEvaluation
	CodeDispatch
	CodeRemoteNotFound
	CodeMalformedInput
	CodeSerialization
)

func (c Code) String() string {
	switch c {
	case CodeStorageTransient:
		return "storage_transient"
	case CodeStoragePersistent:
		return "storage_persistent"
	case CodeEventEvaluation:
		return "event_evaluation"
	case CodeDispatch:
		return "dispatch"
	case CodeRemoteNotFound:
		return "remote_not_found"
	case CodeMalformedInput:
		return "malformed_input"
	case CodeSerialization:
		return "serialization"
	default:
		return "unknown"
	}
}

// Error is a classified error carrying the operation that failed and the
// underlying cause.
type Error struct {
	Code Code
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Op)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs a classified Error.
func New(code Code, op string, err error) *Error {
	return &Error{Code: code, Op: op, Err: err}
}

// IsTransient reports whether err is a classified transient-storage error,
// the only class the Store itself retries on.
func IsTransient(err error) bool {
	var e *Error
	if As(err, &e) {
		return e.Code == CodeStorageTransient
	}
	return false
}

// As is a thin wrapper so callers outside this package don't need to
// import errors just to unwrap an *Error.
func As(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
