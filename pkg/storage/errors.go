package storage

import "errors"

// Sentinel errors for storage operations.
var (
	// ErrNotFound is returned when an experiment or blob does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an experiment with the given ID already exists.
	ErrConflict = errors.New("already exists")

	// ErrInvalidKey is returned when a storage key fails validation.
	ErrInvalidKey = errors.New("invalid storage key")
)
