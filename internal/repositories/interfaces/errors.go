package interfaces

import "errors"

var (
	// ErrNotFound means the referenced document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrRequestTaken means the conditional accept matched nothing because
	// the request is no longer pending.
	ErrRequestTaken = errors.New("request is no longer pending")

	// ErrDuplicate means a unique index rejected the write.
	ErrDuplicate = errors.New("duplicate key")
)
