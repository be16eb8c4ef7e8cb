package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
var New = errors.New

var (
	// Is reports whether any error in err's tree matches target.
	Is = errors.Is
	// As finds the first error in err's tree that matches target.
	As = errors.As
)

// known errors
var (
	ErrMissingLinkParameters = errors.New("missing link parameters")
	ErrMissingFields         = errors.New("missing fields")
	ErrPasswordMismatch      = errors.New("password mismatch")
	ErrPasswordTooShort      = errors.New("password too short")
	ErrPasswordTooWeak       = errors.New("password too weak")
	ErrAttemptNotFound       = errors.New("attempt not found")
	ErrAttemptClosed         = errors.New("attempt closed")
	ErrSubmissionInFlight    = errors.New("submission in flight")
	ErrInvalidTicket         = errors.New("invalid submission ticket")
	ErrUnknownField          = errors.New("unknown field")
	ErrRecovererMissing      = errors.New("recoverer not configured")
)

// ValidationError is a local form validation failure. Err is one of the
// password sentinels above.
type ValidationError struct {
	Err     error
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError wraps a validation sentinel with its display message.
func NewValidationError(kind error, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Err: kind, Message: fmt.Sprintf(format, args...)}
}

// ExternalError is a failure reported by the account recovery service.
// Message is shown to the user verbatim.
type ExternalError struct {
	StatusCode int
	Type       string
	Message    string
	Err        error
}

func (e *ExternalError) Error() string {
	return e.Message
}

func (e *ExternalError) Unwrap() error {
	return e.Err
}
