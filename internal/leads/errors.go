package leads

import (
	"errors"
	"fmt"
)

var (
	// ErrLeadNotFound is returned when a lead id does not resolve.
	ErrLeadNotFound = errors.New("lead not found")

	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("invalid lead data")

	ErrMissingField           = errors.New("is required")
	ErrInvalidEmail           = errors.New("must be a valid email")
	ErrInvalidDate            = errors.New("must be an RFC3339 timestamp or YYYY-MM-DD date")
	ErrInvalidStatus          = errors.New("must be one of NEW, IN_PROGRESS, CLOSED")
	ErrInvalidQuotationStatus = errors.New("must be one of PENDING, SENT, ACCEPTED, REJECTED")
	ErrInvalidThreadLinks     = errors.New("must be valid JSON")
)

// ValidationError reports a rejected field. It unwraps to the specific
// sentinel and also matches ErrValidation.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}
