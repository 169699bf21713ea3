package models

import (
	"errors"
	"fmt"
)

// ErrInvalidPayload marks a server payload that does not match its schema.
var ErrInvalidPayload = errors.New("invalid payload")

// Validator is implemented by response types that check their own shape.
type Validator interface {
	Validate() error
}

func fieldError(schema, field string) error {
	return fmt.Errorf("%w: %s: missing %s", ErrInvalidPayload, schema, field)
}
