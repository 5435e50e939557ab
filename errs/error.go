package errs

import (
	"errors"
	"fmt"
)

// Application error codes. They are mapped to HTTP status codes at the
// boundary, but the rest of the app only ever deals with these.
const (
	ECONFLICT     = "conflict"     // domain precondition failed (duplicate favorite etc.)
	EINTERNAL     = "internal"     // store / infrastructure failure
	EINVALID      = "invalid"      // validation failed
	EFORBIDDEN    = "forbidden"    // ownership violation
	ENOTFOUND     = "not_found"    // entity does not exist
	EUNAUTHORIZED = "unauthorized" // missing or invalid required auth
)

// Error is an application error. It carries a machine-readable Code, a
// human-readable Message, and for validation errors a per-field breakdown.
type Error struct {
	Code    string
	Message string

	// Fields holds one message per violated field for EINVALID errors.
	// Keys may be dotted paths ("user.username"); only the last segment
	// is shown to API clients.
	Fields map[string]string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("conduit error: code=%s message=%s", e.Code, e.Message)
}

// Errorf constructs an Error with the given code and formatted message.
func Errorf(code string, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Invalidf constructs a single-field validation error.
func Invalidf(field, format string, args ...interface{}) *Error {
	return &Error{
		Code:    EINVALID,
		Message: "Validation failed.",
		Fields:  map[string]string{field: fmt.Sprintf(format, args...)},
	}
}

// ErrorCode returns the code of any error. A nil error has no code,
// an error that is not an *Error is reported as internal.
func ErrorCode(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage returns the message of any error. Messages of non-application
// errors are masked, so internals never leak to API clients.
func ErrorMessage(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Message
	}
	return "An internal error has occurred."
}

// ErrorFields returns the per-field messages of a validation error,
// or nil for any other error.
func ErrorFields(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}
