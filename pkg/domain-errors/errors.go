// Package domainerrors provides typed, code-carrying errors for the identity
// and credential core. Services return these so callers can branch on the
// failure class without string matching.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain failure.
type Code string

const (
	// CodeKeyManagement covers signing-key generation, retrieval and signing
	// failures. Retrying the operation is safe and idempotent.
	CodeKeyManagement Code = "key_management"
	// CodeInvalidData covers malformed payloads, JSON and JWT structure.
	CodeInvalidData Code = "invalid_data"
	// CodeNotFound covers unknown presentation request states and missing records.
	CodeNotFound Code = "not_found"
	// CodeCryptographic covers signature and encoding failures not tied to key access.
	CodeCryptographic Code = "cryptographic"
	// CodeStorage covers persistence collaborator failures.
	CodeStorage Code = "storage"
	// CodeConfiguration covers unimplemented or unsupported protocol paths.
	CodeConfiguration Code = "configuration"
	// CodeInternal is the fallback for unexpected failures.
	CodeInternal Code = "internal"
)

// Error is a domain error with a stable code and a human-readable message.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error, preserving the
// cause chain for errors.Is/As.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) is a domain error with
// the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, or CodeInternal when err is not a
// domain error.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
