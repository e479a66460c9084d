package app

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrUsernameExists    = errors.New("username already exists")
	ErrEmailExists       = errors.New("email already exists")
	ErrInvalidCredential = errors.New("invalid username or password")

	// ErrUnauthenticated is the single public face of every credential failure.
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrMissingCredential = fmt.Errorf("%w: missing credential", ErrUnauthenticated)
	ErrInvalidToken      = fmt.Errorf("%w: invalid credential", ErrUnauthenticated)
	ErrUnknownSubject    = fmt.Errorf("%w: unknown subject", ErrUnauthenticated)

	ErrForbidden       = errors.New("access denied")
	ErrSessionNotFound = errors.New("session not found")
)

// ValidationError describes a rejected field. It matches ErrInvalidInput under errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// outcome labels an operation result for metrics.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidInput):
		return "invalid"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrSessionNotFound):
		return "not_found"
	default:
		return "error"
	}
}
