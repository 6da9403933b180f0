package domain

import "fmt"

// Error types for consistent error handling across the billing core.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrValidation indicates a validation error (bad input). Surfaces
// immediately with no retry.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrConflict indicates concurrent writers collided: a sequence-number
// uniqueness violation, or a renewal invoked twice for one student.
type ErrConflict struct {
	Resource string
	Message  string
}

func (e *ErrConflict) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("conflict on %s: %s", e.Resource, e.Message)
	}
	return e.Message
}

// ErrExternalService indicates a failure in a remote store call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrTimeout indicates an operation exceeded its deadline.
type ErrTimeout struct {
	Operation string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("operation timed out: %s", e.Operation)
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrUnauthorized indicates invalid credentials or token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// Renewal step names used in RenewalStepError.
const (
	RenewalStepArchive     = "archive_current"
	RenewalStepUpdate      = "update_financial_record"
	RenewalStepMaterialize = "materialize"
)

// RenewalStepError reports exactly which renewal step failed, so callers can
// tell "nothing changed" from "partially applied" and know where to resume.
type RenewalStepError struct {
	Step      string
	StudentID string
	Err       error
}

func (e *RenewalStepError) Error() string {
	return fmt.Sprintf("renewal halted at step %q for student %s: %v", e.Step, e.StudentID, e.Err)
}

func (e *RenewalStepError) Unwrap() error {
	return e.Err
}
