package store

import "errors"

var (
	// ErrNotFound means the requested record does not exist.
	ErrNotFound = errors.New("store: record not found")
	// ErrDuplicateEntry means a write violated a uniqueness constraint.
	ErrDuplicateEntry = errors.New("store: duplicate entry")
)
