package utils

import (
	"errors"
	"fmt"
)

var ErrorRecordNotFound = errors.New("record not found")

// ValidationError covers bad input: missing entity, non-positive quantity,
// inactive product/warehouse/supplier. Surfaced to the caller, never retried.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// StateConflictError covers a wrong status for the requested transition,
// e.g. approving a non-DRAFT purchase order or shipping a non-PLANNED shipment.
type StateConflictError struct {
	Message string
}

func (e *StateConflictError) Error() string {
	return e.Message
}

func NewStateConflictError(format string, args ...interface{}) error {
	return &StateConflictError{Message: fmt.Sprintf(format, args...)}
}

func IsStateConflictError(err error) bool {
	var se *StateConflictError
	return errors.As(err, &se)
}

// ResourceExhaustionError covers insufficient available or reserved stock where
// partial fulfillment is nonsensical (shipment debit). The reservation engine
// never raises it: a shortfall there becomes a backorder instead.
type ResourceExhaustionError struct {
	Message string
}

func (e *ResourceExhaustionError) Error() string {
	return e.Message
}

func NewResourceExhaustionError(format string, args ...interface{}) error {
	return &ResourceExhaustionError{Message: fmt.Sprintf(format, args...)}
}

func IsResourceExhaustionError(err error) bool {
	var re *ResourceExhaustionError
	return errors.As(err, &re)
}

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}
