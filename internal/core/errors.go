package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a table or column does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation is returned when a request fails the naming grammar or misses
	// required fields. Nothing has been executed when it is returned.
	ErrValidation = errors.New("validation failed")
)

// StorageError wraps a failure reported by the storage engine. The engine's
// message is kept verbatim so operators see the exact SQL-level diagnostic.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError wraps err unless it is nil or already a storage, validation or
// not-found error.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// NotFoundf returns an error wrapping ErrNotFound.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Invalidf returns an error wrapping ErrValidation.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// IsStorageError reports whether err carries a storage engine failure.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
