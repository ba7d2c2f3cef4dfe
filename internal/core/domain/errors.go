package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by repositories when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNoZones means no alert zones have been loaded.
	ErrNoZones = errors.New("no alert zones loaded")
)

// ValidationError reports a missing or malformed field in external input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Missing builds a ValidationError for an absent required field.
func Missing(field string) *ValidationError {
	return &ValidationError{Field: field, Reason: "missing"}
}

// InvalidInputError reports a numeric input a geo function cannot use:
// non-finite, or outside the range the function covers.
type InvalidInputError struct {
	Field  string
	Value  float64
	Reason string // empty means non-finite
}

func (e *InvalidInputError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s %s, got %v", e.Field, e.Reason, e.Value)
	}
	return fmt.Sprintf("%s must be finite, got %v", e.Field, e.Value)
}
