// Package errors provides structured error types for the ttxdiff application.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across CLI and API
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes mirror the failure taxonomy of the comparison pipeline:
//   - SOURCE_*: problems with the font source before any process is spawned
//   - BINARY_NOT_FOUND / BUILD_ERROR / TIMEOUT: per-toolchain build failures
//   - DUMP_ERROR: the table dumper could not read a built binary
//   - CACHE_*: build cache failures
//
// # Usage
//
//	err := errors.New(errors.ErrCodeSourceNotFound, "no such source: %s", path)
//	if errors.Is(err, errors.ErrCodeSourceNotFound) {
//	    // Handle missing source
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeBuildError, origErr, "fontmake failed for %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Source resolution errors (fatal, pre-build)
	ErrCodeSourceNotFound Code = "SOURCE_NOT_FOUND"
	ErrCodeInvalidSource  Code = "INVALID_SOURCE"
	ErrCodeInvalidOption  Code = "INVALID_OPTION"

	// Per-toolchain build failures
	ErrCodeBinaryNotFound Code = "BINARY_NOT_FOUND"
	ErrCodeBuildError     Code = "BUILD_ERROR"
	ErrCodeTimeout        Code = "TIMEOUT"

	// Canonicalization failures
	ErrCodeDumpError Code = "DUMP_ERROR"

	// Cache errors
	ErrCodeCacheMissDisallowed Code = "CACHE_MISS_DISALLOWED"
	ErrCodeCache               Code = "CACHE_ERROR"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsBuildFailure reports whether err is one of the per-toolchain build
// failure classes (missing binary, nonzero exit, timeout). These are
// reported in the comparison rather than aborting the whole run.
func IsBuildFailure(err error) bool {
	switch GetCode(err) {
	case ErrCodeBinaryNotFound, ErrCodeBuildError, ErrCodeTimeout, ErrCodeDumpError:
		return true
	}
	return false
}
