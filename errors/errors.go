package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Common error types for categorization and handling

var (
	// ErrNotFound indicates a referenced entity does not exist
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates invalid or missing request input
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates the caller could not be authenticated
	ErrUnauthorized = errors.New("unauthorized")

	// ErrEntityStore indicates a read from the entity store failed
	ErrEntityStore = errors.New("entity store read failed")
)

// ValidationError reports required request fields that were missing.
type ValidationError struct {
	Fields []string
}

// Required builds a ValidationError for the given missing fields.
func Required(fields ...string) error {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Fields, ", ") + " required"
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NotFound wraps ErrNotFound with the entity kind and id.
func NotFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}

// WrapError wraps an error with context message
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// WrapErrorf wraps an error with formatted context message
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// IsNotFound checks if error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidInput checks if error is an invalid input error
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsUnauthorized checks if error is an authentication error
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
