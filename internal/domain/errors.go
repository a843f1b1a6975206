package domain

import "errors"

var (
	// ErrNotFound indicates a node or document does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidNode indicates a node violates its type's field rules.
	ErrInvalidNode = errors.New("invalid node")

	// ErrReadOnly indicates a mutation was attempted by a read-only viewer.
	ErrReadOnly = errors.New("read-only")

	// ErrInvalidImport indicates an import payload could not be parsed.
	ErrInvalidImport = errors.New("invalid import")
)
