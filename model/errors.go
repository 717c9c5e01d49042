package model

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates a lookup by id found nothing. This is a normal
// outcome, not a storage failure; callers check it with errors.Is.
var ErrNotFound = errors.New("not found")

// ValidationError indicates a malformed input document. One bad document is
// skipped during ingestion and reported in the batch's aggregate error list.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError creates a validation error for a single field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid document: %s %s", e.Field, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
