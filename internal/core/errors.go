package core

import "fmt"

// AuthError covers bad credentials and missing/invalid/expired session tokens.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }

func NewAuthError(msg string) error { return &AuthError{Message: msg} }

// ValidationError covers missing or malformed required fields.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func NewValidationError(msg string) error { return &ValidationError{Message: msg} }

// ConflictError covers unique-constraint violations (duplicate username).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

func NewConflictError(msg string) error { return &ConflictError{Message: msg} }

// NotFoundError covers unknown profile or user ids.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

func NewNotFoundError(msg string) error { return &NotFoundError{Message: msg} }

// UpstreamError is a target-engine connection or execution failure. The
// engine's native error number is preserved so operators see the real
// diagnostics, not a translated message.
type UpstreamError struct {
	Code    uint16
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("engine error %d: %s", e.Code, e.Message)
	}
	return e.Message
}
