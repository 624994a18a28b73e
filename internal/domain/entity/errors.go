package entity

import (
	"errors"
	"fmt"
)

var errEmptyName = errors.New("entity name is required")

// InvalidTypeError signals a type outside the closed set.
type InvalidTypeError struct {
	Type Type
}

func (e *InvalidTypeError) Error() string {
	return fmt.Sprintf("invalid entity type %q", string(e.Type))
}
