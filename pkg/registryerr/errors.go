// Package registryerr defines the closed error taxonomy shared by every
// engine in the registry core. Callers classify failures by Kind rather
// than by matching on concrete error types.
package registryerr

import (
	"errors"
	"fmt"
)

// Kind is a closed set of failure categories. New kinds are added here,
// never by introducing a parallel sentinel error elsewhere.
type Kind string

const (
	NotFound             Kind = "not_found"
	AlreadyExists        Kind = "already_exists"
	ParseError           Kind = "parse_error"
	UnsupportedFormat    Kind = "unsupported_format"
	CompatibilityTimeout Kind = "compatibility_timeout"
	InvalidInput         Kind = "invalid_input"
	StorageUnavailable   Kind = "storage_unavailable"
	CyclePresent         Kind = "cycle_present"
	DeadlineExceeded     Kind = "deadline_exceeded"
	Internal             Kind = "internal"
)

// Error is the single structured error type surfaced to callers across the
// compatibility, lineage, analytics, and storage engines.
type Error struct {
	Kind       Kind
	Message    string
	Path       string // optional JSON-pointer-style location
	Suggestion string // optional remediation hint
	cause      error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (at %s)", e.Kind, e.Message, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an Error of the given kind with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf builds an Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a Kind to an existing error, preserving it via Unwrap.
func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// WithPath returns a copy of e with Path set.
func (e *Error) WithPath(path string) *Error {
	cp := *e
	cp.Path = path
	return &cp
}

// WithSuggestion returns a copy of e with Suggestion set.
func (e *Error) WithSuggestion(s string) *Error {
	cp := *e
	cp.Suggestion = s
	return &cp
}

// KindOf extracts the Kind of err, defaulting to Internal if err does not
// carry a structured Kind.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
