package db

import "errors"

// Backend-neutral errors. Every store translates its driver's errors into
// these so callers never import a driver package.
var (
	ErrNotFound        = errors.New("record not found")
	ErrUniqueViolation = errors.New("unique constraint violated")
)
