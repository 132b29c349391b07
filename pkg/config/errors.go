package config

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigNotFound is returned when a required config file is missing.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrInvalidYAML is returned when a config file fails to parse.
	ErrInvalidYAML = errors.New("invalid YAML")
)

// ValidationError describes a single invalid configuration value.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration for '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new configuration validation error.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
