package schema

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidEntity is the sentinel wrapped by every *ValidationError,
// allowing errors.Is checks without inspecting the concrete type.
var ErrInvalidEntity = errors.New("schema: invalid entity")

// ValidationError reports a field whose value violates the schema model:
// a confidence score outside [0.0, 1.0], an unknown enum variant, or a
// missing required identifier.
//
// ValidationError supports errors.Is(err, ErrInvalidEntity) and
// errors.As(err, *ValidationError).
type ValidationError struct {
	// Field is the offending field in the entity (e.g., "confidence").
	Field string

	// Reason describes why the value was rejected.
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema: invalid %s: %s", e.Field, e.Reason)
}

// Unwrap allows errors.Is(err, ErrInvalidEntity).
func (e *ValidationError) Unwrap() error {
	return ErrInvalidEntity
}

// validateConfidence rejects scores outside [0.0, 1.0]. NaN fails both
// range comparisons, so it is checked explicitly.
func validateConfidence(field string, v float64) error {
	if math.IsNaN(v) {
		return &ValidationError{
			Field:  field,
			Reason: "NaN is not a confidence score",
		}
	}
	if v < 0.0 || v > 1.0 {
		return &ValidationError{
			Field:  field,
			Reason: fmt.Sprintf("%v is outside [0.0, 1.0]", v),
		}
	}
	return nil
}
