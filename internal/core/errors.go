package core

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation matches every *ValidationError
	ErrValidation = errors.New("validation failed")

	// ErrNotFound matches every *NotFoundError
	ErrNotFound = errors.New("not found")

	// ErrConcurrentUpdate is returned when a recurrence marker moved while an
	// occurrence was being committed.
	ErrConcurrentUpdate = errors.New("concurrent update conflict")
)

var (
	ErrInvalidDay           = errors.New("invalid day")
	ErrInvalidMonth         = errors.New("invalid month")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrEmptyDescription     = errors.New("empty description")
	ErrDescriptionTooLong   = errors.New("description too long (max 200 characters)")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrMissingFrequency     = errors.New("recurrence frequency required for recurring expense")
	ErrInvalidFrequency     = errors.New("invalid recurrence frequency")
	ErrInvalidPeriod        = errors.New("period end before start")
	ErrInvalidBudgetType    = errors.New("invalid budget type")
	ErrEmptyCategoryName    = errors.New("empty category name")
	ErrCategoryCycle        = errors.New("circular reference in category hierarchy")
	ErrActiveBudgetExists   = errors.New("active budget already exists for this category")
)

// ValidationError reports a rejected input before any write happened.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %v", ErrValidation, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", ErrValidation, e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// NewValidationError builds a ValidationError for callers outside core.
func NewValidationError(field string, err error) error {
	return invalid(field, err)
}

// NotFoundError reports an unknown id.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func NotFound(entity string, id int64) error {
	return &NotFoundError{Entity: entity, ID: id}
}
