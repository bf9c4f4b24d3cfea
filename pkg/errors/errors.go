// Package errors provides structured error types for sgtsnepi.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the library and the CLI
//   - Machine-readable error codes for programmatic handling
//   - Diagnostic context (offending dimension, vertex, iteration)
//   - Error wrapping with context preservation
//
// # Error Codes
//
// The embedding core reports four kinds of failure:
//   - INVALID_INPUT: empty or rank-deficient point clouds, malformed or
//     non-square adjacency matrices, non-finite values
//   - DEGENERATE_GRAPH: isolated vertices; handled internally and only
//     surfaced as a warning or when no vertex is connected at all
//   - NUMERICAL_INSTABILITY: non-finite forces or coordinates during
//     optimization; always fatal
//   - CONFIGURATION_ERROR: inconsistent option combinations
//
// The remaining codes cover file and cache plumbing.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidInput, "point %d has %d features, want %d", i, got, want)
//	if errors.Is(err, errors.ErrCodeInvalidInput) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeInvalidFormat, origErr, "read %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Embedding core errors
	ErrCodeInvalidInput         Code = "INVALID_INPUT"
	ErrCodeDegenerateGraph      Code = "DEGENERATE_GRAPH"
	ErrCodeNumericalInstability Code = "NUMERICAL_INSTABILITY"
	ErrCodeConfiguration        Code = "CONFIGURATION_ERROR"

	// File format errors
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidPath   Code = "INVALID_PATH"

	// Resource errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Cache backend errors
	ErrCodeNetwork Code = "NETWORK_ERROR"
	ErrCodeTimeout Code = "TIMEOUT"

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
	for err != nil {
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
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

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// InstabilityError describes a non-finite value met during optimization.
// It carries the iteration and vertex so the failure can be reproduced.
type InstabilityError struct {
	Iteration int    // Zero-based iteration index
	Vertex    int    // Vertex index in the caller's numbering, or -1
	Dim       int    // Coordinate dimension, or -1
	Quantity  string // What went non-finite: "gradient", "coordinate", "normalization"
}

// Error implements the error interface.
func (e *InstabilityError) Error() string {
	switch {
	case e.Vertex < 0:
		return fmt.Sprintf("non-finite %s at iteration %d", e.Quantity, e.Iteration)
	case e.Dim < 0:
		return fmt.Sprintf("non-finite %s at iteration %d, vertex %d", e.Quantity, e.Iteration, e.Vertex)
	default:
		return fmt.Sprintf("non-finite %s at iteration %d, vertex %d, dim %d", e.Quantity, e.Iteration, e.Vertex, e.Dim)
	}
}

// Code returns the error code for this error type.
func (e *InstabilityError) Code() Code {
	return ErrCodeNumericalInstability
}

// Instability wraps an InstabilityError in a coded *Error.
func Instability(iter, vertex, dim int, quantity string) *Error {
	cause := &InstabilityError{Iteration: iter, Vertex: vertex, Dim: dim, Quantity: quantity}
	return Wrap(ErrCodeNumericalInstability, cause, "optimization diverged")
}
