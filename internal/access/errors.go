package access

import "errors"

var (
	// ErrPreconditionFailed is returned when a guarded write matched zero
	// rows because the record's status changed concurrently.
	ErrPreconditionFailed = errors.New("precondition failed: record changed concurrently")

	// ErrStoreUnavailable wraps transport or query failures against the
	// backing store.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrNotFound is returned when an operation targets a record that no
	// longer exists.
	ErrNotFound = errors.New("not found")

	// ErrValidationFailed is returned for caller-supplied values out of
	// range before any write is attempted.
	ErrValidationFailed = errors.New("validation failed")
)
