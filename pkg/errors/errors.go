// Package errors provides structured error types for gridcollage.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI, the studio service and the HTTP API
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures
//   - *_NOT_FOUND: Resource not found
//   - OVERLAP: A span change that would partially cover a sibling cell
//   - INTERNAL_*: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeCellNotFound, "cell %q not found", id)
//	if errors.Is(err, errors.ErrCodeCellNotFound) {
//	    // Keep the previous layout
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeImageDecode, origErr, "decode %s", imageID)
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput      Code = "INVALID_INPUT"
	ErrCodeInvalidLayout     Code = "INVALID_LAYOUT"
	ErrCodeInvalidOutputSpec Code = "INVALID_OUTPUT_SPEC"
	ErrCodeInvalidImage      Code = "INVALID_IMAGE"
	ErrCodeInvalidColor      Code = "INVALID_COLOR"
	ErrCodeInvalidPath       Code = "INVALID_PATH"
	ErrCodeTooLarge          Code = "TOO_LARGE"

	// Layout editing errors
	ErrCodeOverlap Code = "OVERLAP"

	// Resource not found errors
	ErrCodeNotFound         Code = "NOT_FOUND"
	ErrCodeCellNotFound     Code = "CELL_NOT_FOUND"
	ErrCodeImageNotFound    Code = "IMAGE_NOT_FOUND"
	ErrCodeTemplateNotFound Code = "TEMPLATE_NOT_FOUND"
	ErrCodeSessionNotFound  Code = "SESSION_NOT_FOUND"

	// Rendering errors
	ErrCodeImageDecode       Code = "IMAGE_DECODE"
	ErrCodeUnsupportedFormat Code = "UNSUPPORTED_FORMAT"

	// Internal errors
	ErrCodeStorage  Code = "STORAGE_ERROR"
	ErrCodeInternal Code = "INTERNAL_ERROR"
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

// HTTPStatus maps an error code to the HTTP status the API responds with.
// Errors without a code map to 500.
func HTTPStatus(err error) int {
	switch GetCode(err) {
	case ErrCodeInvalidInput, ErrCodeInvalidLayout, ErrCodeInvalidOutputSpec,
		ErrCodeInvalidImage, ErrCodeInvalidColor, ErrCodeInvalidPath,
		ErrCodeUnsupportedFormat:
		return http.StatusBadRequest
	case ErrCodeTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrCodeOverlap:
		return http.StatusConflict
	case ErrCodeNotFound, ErrCodeCellNotFound, ErrCodeImageNotFound,
		ErrCodeTemplateNotFound, ErrCodeSessionNotFound:
		return http.StatusNotFound
	case ErrCodeImageDecode:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
