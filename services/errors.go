package services

import (
	"errors"
	"fmt"
)

// ErrorCode classifies occupancy engine failures for callers that map them
// to HTTP statuses or user-facing notifications.
type ErrorCode string

const (
	CodeNotFound          ErrorCode = "not_found"
	CodeCapacityExceeded  ErrorCode = "capacity_exceeded"
	CodeAccessDenied      ErrorCode = "access_denied"
	CodeInvalidState      ErrorCode = "invalid_state"
	CodeTransientConflict ErrorCode = "transient_conflict"
)

// Error is a classified occupancy failure. Message is user-facing and is
// displayed verbatim by the UI.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// AsError extracts a classified *Error from err, if it carries one.
func AsError(err error) (*Error, bool) {
	var oe *Error
	if errors.As(err, &oe) {
		return oe, true
	}
	return nil, false
}

func errNotFound(format string, args ...interface{}) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func errCapacity(format string, args ...interface{}) *Error {
	return &Error{Code: CodeCapacityExceeded, Message: fmt.Sprintf(format, args...)}
}

func errAccessDenied(format string, args ...interface{}) *Error {
	return &Error{Code: CodeAccessDenied, Message: fmt.Sprintf(format, args...)}
}

func errInvalidState(format string, args ...interface{}) *Error {
	return &Error{Code: CodeInvalidState, Message: fmt.Sprintf(format, args...)}
}

func errTransientConflict(format string, args ...interface{}) *Error {
	return &Error{Code: CodeTransientConflict, Message: fmt.Sprintf(format, args...)}
}
