// Package verifyerr defines the closed set of errors raised by the
// verification tier. Anything outside the set is wrapped as UnknownError.
package verifyerr

import (
	"errors"
	"fmt"

	"github.com/pilacorp/go-vc-verifier/credential/common/constant"
)

// ValidationError carries a stable error code and a human readable message.
type ValidationError struct {
	Code    string
	Message string
}

// NewValidationError creates a ValidationError.
func NewValidationError(code, message string) *ValidationError {
	return &ValidationError{Code: code, Message: message}
}

// NewValidationErrorf creates a ValidationError with a formatted message.
func NewValidationErrorf(code, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// UnknownError wraps an unexpected internal failure.
type UnknownError struct {
	Err error
}

func (e *UnknownError) Error() string {
	if e.Err == nil {
		return "unknown error"
	}
	return e.Err.Error()
}

func (e *UnknownError) Unwrap() error {
	return e.Err
}

// PublicKeyNotFoundError means no key material could be located for a verification method.
type PublicKeyNotFoundError struct {
	VerificationMethod string
	Reason             string
}

func (e *PublicKeyNotFoundError) Error() string {
	return fmt.Sprintf("public key not found for %q: %s", e.VerificationMethod, e.Reason)
}

// PublicKeyTypeNotSupportedError means key material was found but its type is not implemented.
type PublicKeyTypeNotSupportedError struct {
	VerificationMethod string
	KeyType            string
}

func (e *PublicKeyTypeNotSupportedError) Error() string {
	return fmt.Sprintf("public key type %q not supported for %q", e.KeyType, e.VerificationMethod)
}

// NotFound is a shorthand for a PublicKeyNotFoundError.
func NotFound(vm, format string, args ...interface{}) error {
	return &PublicKeyNotFoundError{VerificationMethod: vm, Reason: fmt.Sprintf(format, args...)}
}

// NotSupported is a shorthand for a PublicKeyTypeNotSupportedError.
func NotSupported(vm, keyType string) error {
	return &PublicKeyTypeNotSupportedError{VerificationMethod: vm, KeyType: keyType}
}

// IsTyped reports whether err is, or wraps, one of the closed error types.
func IsTyped(err error) bool {
	var (
		validationErr  *ValidationError
		unknownErr     *UnknownError
		notFoundErr    *PublicKeyNotFoundError
		unsupportedErr *PublicKeyTypeNotSupportedError
	)
	return errors.As(err, &validationErr) ||
		errors.As(err, &unknownErr) ||
		errors.As(err, &notFoundErr) ||
		errors.As(err, &unsupportedErr)
}

// Wrap returns err unchanged when it belongs to the closed set and an
// UnknownError preserving the original message otherwise.
func Wrap(err error) error {
	if err == nil || IsTyped(err) {
		return err
	}
	return &UnknownError{Err: err}
}

// Code extracts the error code carried by err, ERR_GENERIC for anything else.
func Code(err error) string {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Code
	}
	return constant.ErrCodeGeneric
}
