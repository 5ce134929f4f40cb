// Package rpcerr defines the core error taxonomy shared by the path
// resolver, the lock coordinator client, and the file operations. It mirrors
// the transport-neutral Failure pattern the teacher service uses
// (internal/core.Failure): operations return a typed Kind plus a message,
// and the RPC dispatcher (internal/jsonrpc) maps Kind to a JSON-RPC error
// code without needing to understand filesystem or coordinator internals.
package rpcerr

import "fmt"

// Kind enumerates the core failure categories from spec §7.
type Kind string

const (
	InvalidArgument    Kind = "invalid_argument"
	PathEscape         Kind = "path_escape"
	NotFound           Kind = "not_found"
	AlreadyExists      Kind = "already_exists"
	NotADirectory      Kind = "not_a_directory"
	IsADirectory       Kind = "is_a_directory"
	NotAFile           Kind = "not_a_file"
	DirectoryNotEmpty  Kind = "directory_not_empty"
	AccessDenied       Kind = "access_denied"
	IOError            Kind = "io_error"
	LockUnavailable    Kind = "lock_unavailable"
)

// Error is the concrete error type returned by path resolution, file
// operations, and the lock coordinator client.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// New constructs an *Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an *Error that preserves cause for %w-style unwrapping.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is reports whether err carries the given Kind, unwrapping as needed.
func Is(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			if e.Kind == kind {
				return true
			}
			err = e.Cause
			continue
		}
		return false
	}
	return false
}

// KindOf extracts the Kind from err, defaulting to IOError for errors that
// did not originate from this package (e.g. raw os errors that slipped
// through an operation's error handling).
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return IOError
}
