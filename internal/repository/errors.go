package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist
	// or is outside the caller's organization.
	ErrNotFound = errors.New("entity not found")

	// ErrConflict is returned when a write violates a uniqueness or reference constraint.
	ErrConflict = errors.New("entity conflict")
)
