package utils

import (
	"errors"
	"fmt"
)

var ErrorRecordNotFound = errors.New("record not found")

// ValidationError is malformed caller input (negative amounts, unknown
// account id, sub-epsilon gap passed to the adjustment creator). Surfaced
// immediately, never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ConcurrencyConflict means a locked transaction was mutated during an active
// session, or a checkpoint/period write collided. Recoverable: the caller
// re-runs the gap computation.
type ConcurrencyConflict struct {
	Resource string
	Detail   string
}

func (e *ConcurrencyConflict) Error() string {
	return fmt.Sprintf("concurrency conflict on %s: %s", e.Resource, e.Detail)
}

func NewConcurrencyConflict(resource, detail string) error {
	return &ConcurrencyConflict{Resource: resource, Detail: detail}
}

func IsConcurrencyConflict(err error) bool {
	var ce *ConcurrencyConflict
	return errors.As(err, &ce)
}

// DataIntegrityError means a prior checkpoint or period reference cannot be
// resolved consistently. Fatal for the current operation; the only documented
// fallback to a zero baseline is the never-reconciled account case.
type DataIntegrityError struct {
	Resource string
	Detail   string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("data integrity error on %s: %s", e.Resource, e.Detail)
}

func NewDataIntegrityError(resource, detail string) error {
	return &DataIntegrityError{Resource: resource, Detail: detail}
}

func IsDataIntegrityError(err error) bool {
	var de *DataIntegrityError
	return errors.As(err, &de)
}
