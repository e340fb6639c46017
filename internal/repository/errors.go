package repository

import "errors"

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when a row with the same client id already exists.
	ErrDuplicate = errors.New("duplicate")
)
