package queryxml

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFieldReference indicates that a field reference passed to Where
	// does not resolve to a field of the bound entity type.
	ErrInvalidFieldReference = errors.New("invalid field reference")

	// ErrInvalidOperator indicates an Operator value outside the declared set.
	ErrInvalidOperator = errors.New("invalid operator")

	// ErrInvalidEntity indicates that a typed builder was bound to a type
	// that is not a struct.
	ErrInvalidEntity = errors.New("invalid entity type")
)

// InvalidFieldReferenceError describes a rejected field reference.
type InvalidFieldReferenceError struct {
	Entity string
	Field  string
	Reason string
}

func (e *InvalidFieldReferenceError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s: %s", ErrInvalidFieldReference, e.Entity, e.Reason)
	}
	return fmt.Sprintf("%s: %s.%s: %s", ErrInvalidFieldReference, e.Entity, e.Field, e.Reason)
}

func (e *InvalidFieldReferenceError) Is(target error) bool {
	return target == ErrInvalidFieldReference
}
