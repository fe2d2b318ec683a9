package session

import "errors"

var (
	// ErrValidation covers bad caller input: empty name, capacity out of range.
	ErrValidation = errors.New("session: invalid input")
	// ErrNotFound means the session does not exist or is not active where
	// activity is required.
	ErrNotFound = errors.New("session: not found")
	// ErrSessionFull means the session is at its participant limit. Distinct
	// from ErrNotFound so clients can tell "doesn't exist" from "try later".
	ErrSessionFull = errors.New("session: full")
	// ErrForbidden means the caller is not allowed to perform the operation.
	ErrForbidden = errors.New("session: forbidden")
	// ErrUnavailable means the persistence collaborator failed mid-operation.
	ErrUnavailable = errors.New("session: store unavailable")
)
