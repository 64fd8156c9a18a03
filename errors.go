package htmlview

import (
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// IOError represents I/O-related errors
	IOError ErrorType = "io_error"

	// ConfigError represents configuration-related errors
	ConfigError ErrorType = "config_error"

	// ValidationError represents validation-related errors
	ValidationError ErrorType = "validation_error"

	// ClipboardError represents failures of the platform clipboard
	ClipboardError ErrorType = "clipboard_error"

	// ConvertError represents failures while converting between document formats
	ConvertError ErrorType = "convert_error"
)

// AppError represents a structured application error
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
	Code    string
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap implements the error unwrapping interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new I/O error
func NewIOError(message string, err error) *AppError {
	return &AppError{
		Type:    IOError,
		Message: message,
		Err:     err,
		Code:    "IO001",
	}
}

// NewConfigError creates a new configuration error
func NewConfigError(message string, err error) *AppError {
	return &AppError{
		Type:    ConfigError,
		Message: message,
		Err:     err,
		Code:    "CONF001",
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:    ValidationError,
		Message: message,
		Code:    "VALID001",
	}
}

// NewClipboardError creates a new clipboard error
func NewClipboardError(message string, err error) *AppError {
	return &AppError{
		Type:    ClipboardError,
		Message: message,
		Err:     err,
		Code:    "CLIP001",
	}
}

// NewConvertError creates a new conversion error
func NewConvertError(message string, err error) *AppError {
	return &AppError{
		Type:    ConvertError,
		Message: message,
		Err:     err,
		Code:    "CONV001",
	}
}
