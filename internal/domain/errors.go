package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error types for consistent error handling across the client.

// ValidationError is raised before any network call and lists every
// violated rule, in rule order.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	if len(e.Messages) == 0 {
		return "validation failed"
	}
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

// Validation collects rule violations. A nil result from Err means no rule was violated.
type Validation struct {
	messages []string
}

// Check records msg when ok is false.
func (v *Validation) Check(ok bool, msg string) {
	if !ok {
		v.messages = append(v.messages, msg)
	}
}

// Err returns a *ValidationError when at least one rule was violated.
func (v *Validation) Err() error {
	if len(v.messages) == 0 {
		return nil
	}
	return &ValidationError{Messages: v.messages}
}

// AuthReason tells why an authentication step failed.
type AuthReason string

const (
	AuthInvalidCredentials   AuthReason = "invalid_credentials"
	AuthRegistrationRejected AuthReason = "registration_rejected"
	AuthNotAuthenticated     AuthReason = "not_authenticated"
	AuthSessionExpired       AuthReason = "session_expired"
)

// AuthError indicates invalid credentials, a rejected registration or a
// missing/expired session.
type AuthError struct {
	Reason AuthReason
	Detail string
}

func (e *AuthError) Error() string {
	var msg string
	switch e.Reason {
	case AuthInvalidCredentials:
		msg = "invalid credentials"
	case AuthRegistrationRejected:
		msg = "registration rejected"
	case AuthNotAuthenticated:
		msg = "not authenticated"
	case AuthSessionExpired:
		msg = "session expired, please login again"
	default:
		msg = "authentication failed"
	}
	if e.Detail != "" {
		return msg + ": " + e.Detail
	}
	return msg
}

// IsSessionExpired reports whether err is an AuthError caused by an expired
// or invalid session.
func IsSessionExpired(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr) && authErr.Reason == AuthSessionExpired
}

// NetworkError indicates a non-2xx response or an unreachable backend.
type NetworkError struct {
	Operation string
	Status    int // 0 when no response was received
	Message   string
	Err       error
}

func (e *NetworkError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "request failed"
	}
	switch {
	case e.Status != 0:
		return fmt.Sprintf("%s: %s (status %d)", e.Operation, msg, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Operation, msg, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Operation, msg)
	}
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Temporary reports whether the failure is worth counting against the
// backend's health (transport errors and 5xx).
func (e *NetworkError) Temporary() bool {
	return e.Status == 0 || e.Status >= 500
}

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}
