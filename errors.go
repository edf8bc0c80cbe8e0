package lmm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Sentinel errors for common failure conditions across the module.
// These errors can be used with errors.Is() for error checking.
var (
	// ErrInvalidConfig indicates the provided backend configuration is
	// invalid or incomplete.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrStoreClosed indicates an operation was attempted on a store
	// after Close was called.
	ErrStoreClosed = errors.New("store is closed")

	// ErrStorageFailed indicates the underlying storage engine rejected
	// or failed an operation. The underlying error is wrapped.
	ErrStorageFailed = errors.New("storage operation failed")
)

// Error kinds categorize errors by their type.
const (
	// KindConfiguration represents errors related to configuration.
	KindConfiguration = "configuration"

	// KindConnection represents errors establishing or verifying a
	// connection to the storage engine.
	KindConnection = "connection"

	// KindStorage represents errors during storage engine operations.
	KindStorage = "storage"

	// KindInternal represents errors in the store's own encoding and
	// decoding, as opposed to failures of the storage engine.
	KindInternal = "internal"
)

// Error is a structured error type that wraps underlying errors with
// additional context about the operation that failed and the category
// of error.
//
// Error implements the error interface and supports error unwrapping,
// making it compatible with errors.Is() and errors.As().
//
// Example usage:
//
//	err := &Error{
//		Op:   "neo4jstore.AppendDelta",
//		Kind: KindStorage,
//		Err:  txErr,
//	}
type Error struct {
	// Op is the operation that failed (e.g., "neo4jstore.CommitKnot").
	Op string

	// Kind categorizes the error (e.g., KindStorage, KindConnection).
	Kind string

	// Err is the underlying error that caused this error.
	Err error
}

// Error implements the error interface, returning a formatted error message
// that includes the operation, kind, and underlying error.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("lmm: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("lmm: %s (%s): %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error, allowing errors.Is() and errors.As()
// to work correctly with wrapped errors.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is implements error matching for Error, allowing comparison based on
// the underlying error or on another Error's Op and Kind.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}

	if t, ok := target.(*Error); ok {
		if t.Kind != "" && e.Kind == t.Kind {
			if t.Op == "" || e.Op == t.Op {
				return true
			}
		}
	}

	return errors.Is(e.Err, target)
}

// NewConnectionError creates a new Error with KindConnection.
func NewConnectionError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindConnection, Err: err}
}

// NewStorageError creates a new Error with KindStorage. The returned
// error matches both ErrStorageFailed and the given cause with errors.Is.
func NewStorageError(op string, err error) *Error {
	if err == nil {
		return &Error{Op: op, Kind: KindStorage, Err: ErrStorageFailed}
	}
	return &Error{Op: op, Kind: KindStorage, Err: fmt.Errorf("%w: %w", ErrStorageFailed, err)}
}

// NewInternalError creates a new Error with KindInternal.
func NewInternalError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindInternal, Err: err}
}

// NewConfigurationError creates a new Error with KindConfiguration.
func NewConfigurationError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindConfiguration, Err: err}
}

// CloseWithLog attempts to close the provided resource and logs any error
// at warning level. This is intended for use in defer statements to ensure
// cleanup errors are not silently ignored.
//
// The name parameter should describe the resource being closed. If logger
// is nil, slog.Default() is used.
func CloseWithLog(ctx context.Context, closer interface{ Close(context.Context) error }, logger *slog.Logger, name string) {
	if closer == nil {
		return
	}

	if logger == nil {
		logger = slog.Default()
	}

	if err := closer.Close(ctx); err != nil {
		logger.Warn("failed to close resource",
			"resource", name,
			"error", err)
	}
}
