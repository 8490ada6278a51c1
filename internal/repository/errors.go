package repository

import "errors"

// Common repository errors
var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicateKey = errors.New("duplicate key violation")
	// ErrStaleUpdate is returned by conditional writes when the row no longer
	// satisfies the write's predicate; the caller should re-read.
	ErrStaleUpdate = errors.New("row changed since read")
)
