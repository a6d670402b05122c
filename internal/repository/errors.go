package repository

import "errors"

var (
	// ErrNotFound marks a lookup for a network, version, customer, or edge set
	// that matched nothing. Callers map it to an external not-found response.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a version-number allocation race that could not be
	// resolved by retrying. The no-gap invariant is preserved by giving up.
	ErrConflict = errors.New("version conflict")
)
