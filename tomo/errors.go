/*
	This file defines the error taxonomy shared across the catalog, storage,
	and batch packages.
*/

package tomo

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an entity, run, or payload is absent.
	ErrNotFound = errors.New("not found")

	// ErrReadOnly is returned when a write or delete is attempted on a
	// read-only entity or backend.
	ErrReadOnly = errors.New("read-only")
)

// ValidationError signals malformed input such as a bad URI, an illegal
// entity name, or an incompatible source/target pattern combination.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed on %q: %s", e.Field, e.Reason)
}

// Invalidf returns a ValidationError for the given field.
func Invalidf(field, format string, args ...interface{}) ValidationError {
	return ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ConflictError signals an identity collision, either across merge sources
// or on creation of an entity whose identity tuple already exists.
type ConflictError struct {
	Kind string
	Key  string
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("identity conflict for %s %q", e.Kind, e.Key)
}
