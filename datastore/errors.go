package datastore

import "errors"

var (
	// ErrAssuranceRequired is returned by a guarded gateway when the caller
	// is not unlocked and two-factor verified at call time.
	ErrAssuranceRequired = errors.New("two-factor assurance required")
	ErrUnknownTable      = errors.New("unknown table")
	ErrNotFound          = errors.New("row not found")
	ErrInvalidQuery      = errors.New("invalid query")
)
