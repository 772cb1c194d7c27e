package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// tokens
	ErrInvalidSigningMethod = errors.New("invalid token signing method")
	ErrInvalidToken         = errors.New("invalid token")
	ErrTokenExpired         = errors.New("token expired")
	ErrTokenNotYetValid     = errors.New("token is not valid yet")
	ErrTokenIsNotRefresh    = errors.New("token is not a refresh token")
	ErrTokenIsNotAccess     = errors.New("token is not an access token")

	// authentication
	ErrEmptyAuthHeader    = errors.New("authorization header is missing")
	ErrInvalidAuthHeader  = errors.New("invalid authorization header format")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserInactive       = errors.New("user is inactive")
	ErrTooManyAttempts    = errors.New("too many login attempts, try again later")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("access denied")

	// context
	ErrActorNotFoundInContext = errors.New("actor not found in request context")

	// domain
	ErrNotFound          = errors.New("record not found")
	ErrBadRequest        = errors.New("bad request")
	ErrValidation        = errors.New("validation failed")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrConflict          = errors.New("conflict")
	ErrInternalServer    = errors.New("internal server error")
)

// HttpError carries a stable kind (Err), a user-facing message and the status code.
type HttpError struct {
	Code    int         `json:"-"`
	Message string      `json:"message"`
	Err     error       `json:"-"`
	Details interface{} `json:"details,omitempty"`
}

func (e *HttpError) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *HttpError) Unwrap() error { return e.Err }

func NewHttpError(code int, message string, err error, details interface{}) *HttpError {
	return &HttpError{Code: code, Message: message, Err: err, Details: details}
}

func NewNotFound(format string, args ...interface{}) error {
	return NewHttpError(http.StatusNotFound, fmt.Sprintf(format, args...), ErrNotFound, nil)
}

func NewForbidden(format string, args ...interface{}) error {
	return NewHttpError(http.StatusForbidden, fmt.Sprintf(format, args...), ErrForbidden, nil)
}

func NewInvalidTransition(format string, args ...interface{}) error {
	return NewHttpError(http.StatusBadRequest, fmt.Sprintf(format, args...), ErrInvalidTransition, nil)
}

func NewValidationError(message string, details interface{}) error {
	return NewHttpError(http.StatusBadRequest, message, ErrValidation, details)
}

func NewConflict(format string, args ...interface{}) error {
	return NewHttpError(http.StatusConflict, fmt.Sprintf(format, args...), ErrConflict, nil)
}

// Kind returns the stable error kind for err, or "INTERNAL".
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrUserInactive):
		return "FORBIDDEN"
	case errors.Is(err, ErrTooManyAttempts):
		return "TOO_MANY_ATTEMPTS"
	case errors.Is(err, ErrInvalidTransition):
		return "INVALID_TRANSITION"
	case errors.Is(err, ErrValidation), errors.Is(err, ErrBadRequest):
		return "VALIDATION_ERROR"
	case errors.Is(err, ErrConflict):
		return "CONFLICT"
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidToken), errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrEmptyAuthHeader), errors.Is(err, ErrInvalidAuthHeader),
		errors.Is(err, ErrTokenIsNotAccess), errors.Is(err, ErrTokenIsNotRefresh), errors.Is(err, ErrTokenNotYetValid),
		errors.Is(err, ErrInvalidSigningMethod), errors.Is(err, ErrActorNotFoundInContext):
		return "UNAUTHORIZED"
	}
	return "INTERNAL"
}
