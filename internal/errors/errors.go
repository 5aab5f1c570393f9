// Package errors provides unified error handling across the mailforge system.
//
// SYSTEM ARCHITECTURE ROLE:
// This module is the foundation of the render pipeline's error taxonomy. Every
// failure a caller can observe is one of a small set of codes: a missing
// template or venue, malformed template markup, an advisory validation
// failure, or a storage fault. All errors are local to a single call; the
// pipeline never retries and never returns partial HTML.
//
// INTEGRATION POINTS:
// - internal/storage: stores construct TemplateNotFound / VenueNotFound /
//   StorageError for lookup and persistence failures
// - internal/renderer: TemplateSyntax for unbalanced placeholder delimiters
// - internal/validation: ValidationError for advisory schema check failures
// - internal/api/server.go: HTTPErrorHandler maps AppErrors to HTTP status
//   codes and JSON error responses
//
// USAGE PATTERNS:
// - Create errors with the constructor functions (TemplateNotFound, ...)
// - Wrap underlying errors with Wrap() to add a code and context
// - Classify with IsNotFound() / GetAppError() at interface boundaries
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized error codes
type ErrorCode string

const (
	// Resource errors
	ErrCodeTemplateNotFound ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrCodeVenueNotFound    ErrorCode = "VENUE_NOT_FOUND"
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"

	// Render errors
	ErrCodeTemplateSyntax ErrorCode = "TEMPLATE_SYNTAX"

	// Validation errors
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// Storage errors
	ErrCodeStorageFailure ErrorCode = "STORAGE_FAILURE"

	// Service errors
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	SeverityInfo     ErrorSeverity = "info"
	SeverityWarning  ErrorSeverity = "warning"
	SeverityError    ErrorSeverity = "error"
	SeverityCritical ErrorSeverity = "critical"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	CategoryResource   ErrorCategory = "resource"
	CategoryRender     ErrorCategory = "render"
	CategoryValidation ErrorCategory = "validation"
	CategoryStorage    ErrorCategory = "storage"
	CategorySystem     ErrorCategory = "system"
)

// AppError represents a standardized application error
type AppError struct {
	Code      ErrorCode      `json:"code"`
	Message   string         `json:"message"`
	Details   string         `json:"details,omitempty"`
	Severity  ErrorSeverity  `json:"severity"`
	Category  ErrorCategory  `json:"category"`
	Cause     error          `json:"-"`
	Context   map[string]any `json:"context,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value any) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message string) *AppError {
	category, severity := categorizeError(code)
	return &AppError{
		Code:      code,
		Message:   message,
		Severity:  severity,
		Category:  category,
		Timestamp: time.Now(),
	}
}

// Wrap wraps an existing error with application error context
func Wrap(err error, code ErrorCode, message string) *AppError {
	category, severity := categorizeError(code)
	return &AppError{
		Code:      code,
		Message:   message,
		Severity:  severity,
		Category:  category,
		Cause:     err,
		Timestamp: time.Now(),
	}
}

// categorizeError determines the category and severity based on error code
func categorizeError(code ErrorCode) (ErrorCategory, ErrorSeverity) {
	switch code {
	case ErrCodeTemplateNotFound, ErrCodeVenueNotFound, ErrCodeNotFound:
		return CategoryResource, SeverityInfo
	case ErrCodeTemplateSyntax:
		return CategoryRender, SeverityWarning
	case ErrCodeValidation, ErrCodeInvalidInput:
		return CategoryValidation, SeverityWarning
	case ErrCodeStorageFailure:
		return CategoryStorage, SeverityError
	case ErrCodeInternalError:
		return CategorySystem, SeverityCritical
	default:
		return CategorySystem, SeverityError
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts an AppError from an error, or converts it to one
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, ErrCodeInternalError, "Internal error occurred")
}

// IsNotFound reports whether the error is any of the not-found codes.
func IsNotFound(err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	switch appErr.Code {
	case ErrCodeTemplateNotFound, ErrCodeVenueNotFound, ErrCodeNotFound:
		return true
	}
	return false
}

// Common error constructors for frequently used errors

func TemplateNotFound(key string) *AppError {
	return NewAppError(ErrCodeTemplateNotFound, fmt.Sprintf("template %q not found", key)).
		WithContext("template", key)
}

func VenueNotFound(key string) *AppError {
	return NewAppError(ErrCodeVenueNotFound, fmt.Sprintf("venue %q not found", key)).
		WithContext("venue", key)
}

func TemplateSyntax(key string, detail string) *AppError {
	return NewAppError(ErrCodeTemplateSyntax, fmt.Sprintf("template %q has malformed markup", key)).
		WithDetails(detail).
		WithContext("template", key)
}

func ValidationError(message string) *AppError {
	return NewAppError(ErrCodeValidation, message)
}

func InvalidInput(message string) *AppError {
	return NewAppError(ErrCodeInvalidInput, message)
}

func InternalError(message string) *AppError {
	return NewAppError(ErrCodeInternalError, message)
}

func StorageError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeStorageFailure, fmt.Sprintf("storage operation failed: %s", operation))
}
