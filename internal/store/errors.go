package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the row does not exist or is not owned by the acting user.
	ErrNotFound = errors.New("not found")

	// ErrInvariantViolation means overlapping goals were observed. It indicates a concurrency
	// defect, never bad input.
	ErrInvariantViolation = errors.New("goal interval invariant violated")
)

// ValidationError rejects malformed input before any state changes.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// StorageError wraps a transaction or connection failure. The store does not retry.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
