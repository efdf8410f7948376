// Package handler provides task handlers for processing queued operations.
package handler

import (
	"errors"
	"fmt"

	"github.com/unifiedsync/syncd/domain/entity"
)

// ErrInvalidPayload indicates a task payload is missing or has a malformed
// field.
var ErrInvalidPayload = errors.New("invalid task payload")

// ExtractString extracts a required string value from the payload.
func ExtractString(payload map[string]any, key string) (string, error) {
	val, ok := payload[key]
	if !ok {
		return "", fmt.Errorf("%w: missing required field: %s", ErrInvalidPayload, key)
	}

	s, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("%w: invalid type for %s: expected string, got %T", ErrInvalidPayload, key, val)
	}

	return s, nil
}

// OptionalString extracts a string value, returning "" when absent.
func OptionalString(payload map[string]any, key string) (string, error) {
	if _, ok := payload[key]; !ok {
		return "", nil
	}
	return ExtractString(payload, key)
}

// ExtractEntityType extracts and parses an entity type.
func ExtractEntityType(payload map[string]any, key string) (entity.Type, error) {
	s, err := ExtractString(payload, key)
	if err != nil {
		return entity.Type{}, err
	}
	t, err := entity.ParseType(s)
	if err != nil {
		return entity.Type{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return t, nil
}
