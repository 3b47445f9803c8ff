package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can decide whether to retry, report, or abort.
type Kind string

const (
	// KindTransient covers rate limiting and timeouts from the reasoning service.
	KindTransient Kind = "transient"
	// KindService covers any other reasoning-service failure (auth, quota, unknown model).
	KindService Kind = "service"
	// KindInvalidOutput means the service answered but the payload was empty or failed validation.
	KindInvalidOutput Kind = "invalid_output"
	// KindValidation means the caller supplied bad input; nothing was sent upstream.
	KindValidation Kind = "validation"
)

// Error is the structured error shared by the prediction pipeline.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a kind and message to cause. A nil cause yields nil.
func Wrap(kind Kind, cause error, message string) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(kind Kind, cause error, format string, args ...any) error {
	if cause == nil {
		return nil
	}
	return Wrap(kind, cause, fmt.Sprintf(format, args...))
}

// Validationf builds a validation error without an underlying cause.
func Validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the outermost *Error in the chain, or "" when err carries none.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func IsTransient(err error) bool     { return Is(err, KindTransient) }
func IsService(err error) bool       { return Is(err, KindService) }
func IsInvalidOutput(err error) bool { return Is(err, KindInvalidOutput) }
func IsValidation(err error) bool    { return Is(err, KindValidation) }
