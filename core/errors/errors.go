// Package errors provides code-classified errors compatible with the
// standard library's wrapping conventions.
//
// Overview:
//   - Responsibility: Classify errors so transport and interceptor layers can
//     map them to RPC response codes without string matching
//   - Key Types: Code for classification, E for the structured error value
//   - Concurrency Model: All functions are safe for concurrent use
//   - Error Semantics: E implements Unwrap; errors.Is/As work through it
//
// Usage:
//
//	err := errors.New(errors.CodeUnauthenticated, "missing bearer token")
//	wrapped := errors.Wrap(errors.CodeUnavailable, "healthx.Check", cause)
//	code := errors.CodeOf(wrapped)
package errors

import (
	"errors"
	"fmt"
)

// Code classifies an error. The set is aligned with Connect/gRPC codes so
// mapping at the RPC boundary is a direct translation.
type Code string

const (
	CodeInvalidArgument  Code = "INVALID_ARGUMENT"
	CodeNotFound         Code = "NOT_FOUND"
	CodePermissionDenied Code = "PERMISSION_DENIED"
	CodeUnauthenticated  Code = "UNAUTHENTICATED"
	CodeInternal         Code = "INTERNAL"
	CodeUnavailable      Code = "UNAVAILABLE"
	CodeDeadlineExceeded Code = "DEADLINE_EXCEEDED"
	CodeCanceled         Code = "CANCELED"
)

// E is a structured error with a classification code, the operation that
// failed, an optional cause, and a human-readable message.
type E struct {
	Code Code   // Error classification code
	Op   string // Operation that failed (e.g., "transportx.Do")
	Err  error  // Underlying cause (may be nil)
	Msg  string // Human-readable message
}

// Error implements the error interface.
func (e *E) Error() string {
	switch {
	case e.Err != nil && e.Msg != "":
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Msg)
	}
}

// Unwrap returns the underlying cause for error unwrapping.
func (e *E) Unwrap() error {
	return e.Err
}

// New creates an error with the given code and message.
func New(code Code, msg string) error {
	return &E{Code: code, Msg: msg}
}

// Newf creates an error with the given code and formatted message.
func Newf(code Code, format string, args ...any) error {
	return &E{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Wrap creates an error with the given code wrapping an existing error.
// The operation name identifies where the error occurred.
func Wrap(code Code, op string, err error) error {
	return &E{Code: code, Op: op, Err: err}
}

// CodeOf extracts the classification code from an error, unwrapping as
// needed. Returns the empty code when the chain carries no E.
func CodeOf(err error) Code {
	var e *E
	if err != nil && errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether the error chain carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// Is reports whether any error in err's chain matches target.
func Is(err error, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}
