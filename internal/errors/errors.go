// Package errors defines the core error taxonomy shared by every Terminator
// component (spec.md §7): a closed set of error kinds, a single carrier type,
// and the transient/permanent classification the Locator's retry loop needs.
package errors

import (
	"errors"
	"fmt"
)

// Kind is the closed set of error kinds every core component may raise.
type Kind string

const (
	KindElementNotFound      Kind = "ElementNotFound"
	KindInvalidSelector      Kind = "InvalidSelector"
	KindInvalidArgument      Kind = "InvalidArgument"
	KindUnsupportedOperation Kind = "UnsupportedOperation"
	KindPlatformError        Kind = "PlatformError"
	KindOperationCancelled   Kind = "OperationCancelled"
	KindPortInUse            Kind = "PortInUse"
	KindPortBindError        Kind = "PortBindError"
	KindProcessKillError     Kind = "ProcessKillError"
	KindIoError              Kind = "IoError"
	KindSerializationError   Kind = "SerializationError"
)

// CoreError is the single error carrier used across the core. Details is a
// free-form bag that, per spec.md §7, should include tool name, selector
// string, timeout, and exit code when applicable.
type CoreError struct {
	Kind    Kind
	Message string
	Details map[string]any
	Err     error
}

func (e *CoreError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *CoreError) Unwrap() error { return e.Err }

// Is allows errors.Is(err, &CoreError{Kind: KindElementNotFound}) style checks.
func (e *CoreError) Is(target error) bool {
	var ce *CoreError
	if errors.As(target, &ce) {
		return ce.Kind == e.Kind
	}
	return false
}

// New constructs a CoreError with optional details.
func New(kind Kind, message string, details map[string]any) *CoreError {
	return &CoreError{Kind: kind, Message: message, Details: details}
}

// Wrap constructs a CoreError wrapping an underlying error.
func Wrap(kind Kind, message string, err error, details map[string]any) *CoreError {
	return &CoreError{Kind: kind, Message: message, Err: err, Details: details}
}

// KindOf extracts the Kind of err, or "" if err is not (or does not wrap) a
// *CoreError.
func KindOf(err error) Kind {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// IsKind reports whether err is (or wraps) a CoreError of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsTransient reports whether err should be retried by a bounded retry loop
// (the Locator, §4.C). Only ElementNotFound is transient; every other kind
// is treated as permanent so callers never retry a class of error that can
// never succeed on retry (spec.md §7 "never synthesises other errors as
// ElementNotFound").
func IsTransient(err error) bool {
	return IsKind(err, KindElementNotFound)
}

// IsCancelled reports whether err represents a tripped cancellation token.
func IsCancelled(err error) bool {
	return IsKind(err, KindOperationCancelled)
}

// ElementNotFound, InvalidSelector, ... are convenience constructors.

func ElementNotFound(message string, details map[string]any) *CoreError {
	return New(KindElementNotFound, message, details)
}

func InvalidSelector(message string, details map[string]any) *CoreError {
	return New(KindInvalidSelector, message, details)
}

func InvalidArgument(message string, details map[string]any) *CoreError {
	return New(KindInvalidArgument, message, details)
}

// Unsupported builds an UnsupportedOperation error with an actionable
// suggestion appended to the message, per spec.md §4.D's failure semantics.
func Unsupported(operation, suggestion string) *CoreError {
	msg := fmt.Sprintf("%s is not supported on this element", operation)
	if suggestion != "" {
		msg += "; " + suggestion
	}
	return New(KindUnsupportedOperation, msg, map[string]any{"operation": operation})
}

func Platform(message string, err error, details map[string]any) *CoreError {
	return Wrap(KindPlatformError, message, err, details)
}

func Cancelled(message string) *CoreError {
	return New(KindOperationCancelled, message, nil)
}

func PortInUse(message string, details map[string]any) *CoreError {
	return New(KindPortInUse, message, details)
}

func PortBindError(message string, err error) *CoreError {
	return Wrap(KindPortBindError, message, err, nil)
}

func ProcessKillError(message string, err error) *CoreError {
	return Wrap(KindProcessKillError, message, err, nil)
}

func IoError(message string, err error) *CoreError {
	return Wrap(KindIoError, message, err, nil)
}

func SerializationError(message string, err error) *CoreError {
	return Wrap(KindSerializationError, message, err, nil)
}
