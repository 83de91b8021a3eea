package graph

import "errors"

var (
	// ErrResolverRequired is returned by New when no resolver is supplied.
	ErrResolverRequired = errors.New("graph: resolver is required")

	// ErrEntityNotFound is returned when a neighborhood is requested for an unknown entity.
	ErrEntityNotFound = errors.New("graph: entity not found")

	// ErrInvalidSnapshot is returned when a snapshot cannot be decoded or
	// references entities it does not contain.
	ErrInvalidSnapshot = errors.New("graph: invalid snapshot")
)
