package variables

import (
	"errors"
	"regexp"
)

const (
	MaxKeyLength   = 50
	MaxValueLength = 1000
)

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ErrDuplicateKey is wrapped by validation errors for add/rename collisions.
var ErrDuplicateKey = errors.New("duplicate variable key")

// ValidationError reports input the panel refuses to write. Message is
// suitable for showing to the user as-is.
type ValidationError struct {
	Field   string // "key" or "value"
	Message string
	err     error
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return e.err }

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}

// ValidateKey checks a variable name.
func ValidateKey(key string) error {
	switch {
	case key == "":
		return invalid("key", "Variable name cannot be empty.")
	case len(key) > MaxKeyLength:
		return invalid("key", "Variable name cannot exceed 50 characters.")
	case !keyPattern.MatchString(key):
		return invalid("key", "Variable name can only contain letters, numbers, underscores, and dashes.")
	}
	return nil
}

// ValidateValue checks a variable value.
func ValidateValue(value string) error {
	if value == "" {
		return invalid("value", "Variable value cannot be empty.")
	}
	return ValidateValueLength(value)
}

// ValidateValueLength checks only the upper bound. Editing an existing
// variable may clear its value.
func ValidateValueLength(value string) error {
	if len([]rune(value)) > MaxValueLength {
		return invalid("value", "Variable value cannot exceed 1000 characters.")
	}
	return nil
}

// Validate checks both halves of a variable, key first.
func Validate(key, value string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	return ValidateValue(value)
}

// DuplicateKey is the validation error for a key already present in scope.
func DuplicateKey(key string) error {
	return &ValidationError{
		Field:   "key",
		Message: "A variable with this name already exists.",
		err:     ErrDuplicateKey,
	}
}
