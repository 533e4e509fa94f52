package models

import (
	"fmt"
	"strings"
)

// FieldProblem is one unmet input constraint
type FieldProblem struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned before any computation when the request is invalid
type ValidationError struct {
	Problems []FieldProblem
}

// NewValidationError builds a ValidationError with a single problem
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Problems: []FieldProblem{{Field: field, Message: message}}}
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, fmt.Sprintf("%s: %s", p.Field, p.Message))
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

// DataUnavailableError means no baseline exists for the requested coverage
type DataUnavailableError struct {
	State  string
	Role   Role
	Reason string
}

func (e *DataUnavailableError) Error() string {
	msg := fmt.Sprintf("no compensation data for role %q in state %q", e.Role, e.State)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// SourceFetchError records a data source that failed during a refresh
type SourceFetchError struct {
	Source string
	Err    error
}

func (e *SourceFetchError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Source, e.Err)
}

func (e *SourceFetchError) Unwrap() error { return e.Err }
