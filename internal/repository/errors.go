package repository

import "errors"

var (
	// ErrNotFound indicates the target record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates a conditional write lost to a concurrent
	// mutation: the revision supplied no longer matches the row.
	ErrConflict = errors.New("record modified concurrently")
)
