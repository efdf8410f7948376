package entity

import "errors"

var (
	// ErrUnknownType indicates no descriptor is registered for an entity type.
	ErrUnknownType = errors.New("unknown entity type")

	// ErrMissingRemoteID indicates a unified record has no provider id.
	// It aborts the whole batch it belongs to.
	ErrMissingRemoteID = errors.New("record has no remote_id")

	// ErrInvalidReference indicates a record references a canonical id that
	// does not exist.
	ErrInvalidReference = errors.New("invalid reference")

	// ErrNotFound indicates a canonical record does not exist.
	ErrNotFound = errors.New("record not found")
)
