package errors

import "net/http"

// Descriptions error description
var Descriptions = map[error]string{
	ErrMissingLinkParameters: "Invalid reset link. Please request a new password reset.",
	ErrAttemptNotFound:       "Invalid reset link. Please request a new password reset.",
	ErrMissingFields:         "Please fill in all fields",
	ErrPasswordMismatch:      "Passwords do not match",
	ErrPasswordTooShort:      "Password must be at least 8 characters",
	ErrPasswordTooWeak:       "Password is too easy to guess",
	ErrSubmissionInFlight:    "Your password reset is already being processed",
}

// StatusCodes response error HTTP status code
var StatusCodes = map[error]int{
	ErrMissingLinkParameters: http.StatusBadRequest,
	ErrAttemptNotFound:       http.StatusBadRequest,
	ErrMissingFields:         http.StatusBadRequest,
	ErrPasswordMismatch:      http.StatusBadRequest,
	ErrPasswordTooShort:      http.StatusBadRequest,
	ErrPasswordTooWeak:       http.StatusBadRequest,
	ErrSubmissionInFlight:    http.StatusConflict,
	ErrAttemptClosed:         http.StatusConflict,
}

const fallbackMessage = "Something went wrong. Please try again."

// Message returns the banner text shown for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var ve *ValidationError
	if As(err, &ve) {
		return ve.Message
	}
	var ee *ExternalError
	if As(err, &ee) {
		return ee.Message
	}
	for known, desc := range Descriptions {
		if Is(err, known) {
			return desc
		}
	}
	return fallbackMessage
}

// StatusCode returns the HTTP status used when rendering err.
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var ee *ExternalError
	if As(err, &ee) {
		return http.StatusBadGateway
	}
	for known, code := range StatusCodes {
		if Is(err, known) {
			return code
		}
	}
	return http.StatusInternalServerError
}

// Terminal reports whether err leaves the page with no way forward
// other than requesting a new link.
func Terminal(err error) bool {
	return Is(err, ErrMissingLinkParameters) || Is(err, ErrAttemptNotFound)
}
