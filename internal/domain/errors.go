package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound  = errors.New("booking not found")
	ErrForbidden = errors.New("access denied")
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every field that failed validation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

// PolicyError rejects a well-formed request that business rules do not allow.
type PolicyError struct {
	Reason string
}

func (e *PolicyError) Error() string {
	return e.Reason
}

func NewPolicyError(reason string) error {
	return &PolicyError{Reason: reason}
}

// DependencyError wraps a failure of the store or another collaborator.
type DependencyError struct {
	Op  string
	Err error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

// Dependency wraps err unless it is already a domain error.
func Dependency(op string, err error) error {
	if err == nil {
		return nil
	}
	var (
		verr *ValidationError
		perr *PolicyError
		derr *DependencyError
	)
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrForbidden) ||
		errors.As(err, &verr) || errors.As(err, &perr) || errors.As(err, &derr) {
		return err
	}
	return &DependencyError{Op: op, Err: err}
}
