// internal/core/errors.go
package core

import (
	"errors"
	"fmt"
)

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Predefined errors
var (
	// Data errors
	ErrSymbolNotFound = &Error{Code: "SYMBOL_NOT_FOUND", Message: "symbol not found"}
	ErrNoData         = &Error{Code: "NO_DATA", Message: "no data available"}

	// Fetch errors, never fatal to the watchlist
	ErrFetchFailed      = &Error{Code: "FETCH_FAILED", Message: "quote fetch failed"}
	ErrCollectorTimeout = &Error{Code: "COLLECTOR_TIMEOUT", Message: "collector timeout"}
	ErrRateLimited      = &Error{Code: "RATE_LIMITED", Message: "quote provider rate limit reached"}

	// Persistence errors, logged and discarded
	ErrPersistenceFailed = &Error{Code: "PERSISTENCE_FAILED", Message: "target price persistence failed"}

	// Input errors
	ErrValidation = &Error{Code: "VALIDATION_FAILED", Message: "invalid input"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}

	// Job errors
	ErrJobNotFound = &Error{Code: "JOB_NOT_FOUND", Message: "job not found"}
)

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) (string, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}

// IsFetchError reports whether err is one of the quote fetch kinds, which the
// watchlist absorbs instead of returning.
func IsFetchError(err error) bool {
	return errors.Is(err, ErrFetchFailed) ||
		errors.Is(err, ErrCollectorTimeout) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrSymbolNotFound) ||
		errors.Is(err, ErrNoData)
}
