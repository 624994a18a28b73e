package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound signals a missing resource on a mutating operation.
	ErrNotFound = errors.New("not found")
	// ErrValidation signals malformed caller input.
	ErrValidation = errors.New("validation failed")
	// ErrTimeout signals a stage that exceeded its processing budget.
	ErrTimeout = errors.New("processing budget exceeded")
	// ErrUpstreamUnavailable signals an unreachable collaborator (embedding
	// provider, document store, cache tier). Always isolated per source.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrAlreadyExists signals a duplicate resource.
	ErrAlreadyExists = errors.New("already exists")
	// ErrAlreadySet signals a second write to a write-once field.
	ErrAlreadySet = errors.New("already set")
)

// ValidationError wraps ErrValidation with the offending field and reason.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrValidation.Error(), e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidation creates a field-level validation error.
func NewValidation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// TimeoutError wraps ErrTimeout with the stage that blew its budget.
type TimeoutError struct {
	Stage  string
	Budget time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: stage %s exceeded %s", ErrTimeout.Error(), e.Stage, e.Budget)
}

func (e *TimeoutError) Unwrap() error { return ErrTimeout }

// NewTimeout creates a stage timeout error.
func NewTimeout(stage string, budget time.Duration) error {
	return &TimeoutError{Stage: stage, Budget: budget}
}
