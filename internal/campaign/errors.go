package campaign

import (
	"fmt"

	"github.com/Fantasim/crowdfund/internal/config"
)

// InvalidInputError reports an input that violates the aggregator's preconditions.
// It matches config.ErrInvalidInput via errors.Is.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("%s: %s: %s", config.ErrInvalidInput, e.Field, e.Reason)
}

func (e *InvalidInputError) Unwrap() error { return config.ErrInvalidInput }

func invalid(field, reason string) error {
	return &InvalidInputError{Field: field, Reason: reason}
}
