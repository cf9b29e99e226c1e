// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrTradeNotFound    = errors.New("trade not found")
	ErrStrategyNotFound = errors.New("strategy not found")
	ErrSummaryNotFound  = errors.New("period summary not found")
	ErrScoresNotFound   = errors.New("trade scores not found")
	ErrInputValidation  = errors.New("input validation failed")
	ErrDatabaseError    = errors.New("database error")
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrCoachUnavailable = errors.New("coach unavailable")
	ErrTimeout          = errors.New("operation timed out")
)

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// Is lets every ValidationError match ErrInputValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInputValidation
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// DataError represents a failure reading or writing a journal entity.
type DataError struct {
	Entity  string
	ID      string
	Message string
	Err     error
}

func (e *DataError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("data error [%s] %s: %v", e.Entity, e.ID, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("data error [%s] %s: %s: %v", e.Entity, e.ID, e.Message, e.Err)
	}
	return fmt.Sprintf("data error [%s] %s: %s", e.Entity, e.ID, e.Message)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError creates a new DataError.
func NewDataError(entity, id, message string, err error) *DataError {
	return &DataError{
		Entity:  entity,
		ID:      id,
		Message: message,
		Err:     err,
	}
}

// CoachError represents an error from the LLM-backed coach.
type CoachError struct {
	Model     string
	Operation string
	Err       error
}

func (e *CoachError) Error() string {
	return fmt.Sprintf("coach error [%s] %s: %v", e.Model, e.Operation, e.Err)
}

func (e *CoachError) Unwrap() error {
	return e.Err
}

// NewCoachError creates a new CoachError.
func NewCoachError(model, operation string, err error) *CoachError {
	return &CoachError{
		Model:     model,
		Operation: operation,
		Err:       err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Join returns an error wrapping every non-nil error, or nil.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
