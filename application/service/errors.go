package service

import "errors"

var (
	// ErrClientClosed indicates the client has been closed.
	ErrClientClosed = errors.New("syncd: client is closed")

	// ErrInvalidCursor indicates a list cursor could not be decoded.
	ErrInvalidCursor = errors.New("invalid cursor")

	// ErrPushRejected indicates the provider did not accept a pushed record.
	ErrPushRejected = errors.New("push rejected by provider")
)
