package errors

import (
	"errors"
	"fmt"
)

// ErrorType categorizes the fatal conditions that abort an analysis run
type ErrorType string

const (
	ErrorTypeTransport ErrorType = "transport"
	ErrorTypeStorage   ErrorType = "storage_unavailable"
	ErrorTypeMalformed ErrorType = "malformed_response"
)

// Error is the single domain error surfaced by a run. Any of the three
// causes means the preconditions for analysis are no longer met; the run
// aborts without finalizing its run record.
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("analyze preconditions not met (%s): %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("analyze preconditions not met (%s): %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Transport wraps an upstream connectivity or non-success status failure.
func Transport(err error, format string, args ...interface{}) *Error {
	return &Error{Type: ErrorTypeTransport, Message: fmt.Sprintf(format, args...), Err: err}
}

// Storage wraps a metadata/blob store failure.
func Storage(err error, format string, args ...interface{}) *Error {
	return &Error{Type: ErrorTypeStorage, Message: fmt.Sprintf(format, args...), Err: err}
}

// Malformed wraps a payload that could not be decoded as the expected structure.
func Malformed(err error, format string, args ...interface{}) *Error {
	return &Error{Type: ErrorTypeMalformed, Message: fmt.Sprintf(format, args...), Err: err}
}

// IsType reports whether err is (or wraps) a domain error of the given type.
func IsType(err error, t ErrorType) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == t
	}
	return false
}
