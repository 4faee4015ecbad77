package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard sentinel errors for common cases.
var (
	ErrNoContent      = errors.New("no content")
	ErrNotFound       = errors.New("resource not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrValidation     = errors.New("validation failed")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInternal       = errors.New("internal error")
	ErrBackendUnavail = errors.New("backend unavailable")
)

// AppError represents a structured application error with HTTP status mapping.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NoContent creates a 204 error. The query ran but matched nothing.
func NoContent(resource string) *AppError {
	return &AppError{
		Code:    "NO_CONTENT",
		Message: fmt.Sprintf("no %s matched", resource),
		Status:  http.StatusNoContent,
		Err:     ErrNoContent,
	}
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// Validation creates a 400 error for a cross-field invariant the service
// itself enforces on caller input.
func Validation(message string) *AppError {
	return &AppError{
		Code:    "VALIDATION_ERROR",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrValidation,
	}
}

// Unauthorized creates a 401 error.
func Unauthorized(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthorized,
	}
}

// BackendUnavailable creates a 504 error for transport or protocol failures
// of the search backend. The cause is kept for logging only.
func BackendUnavailable(err error) *AppError {
	return &AppError{
		Code:    "BACKEND_UNAVAILABLE",
		Message: "Error while accessing the gateway server.",
		Status:  http.StatusGatewayTimeout,
		Err:     fmt.Errorf("%w: %w", ErrBackendUnavail, err),
	}
}

// Internal creates a 500 error.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "An unexpected error has occured.",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// IsNoContent reports whether err signals an empty, successful result.
func IsNoContent(err error) bool {
	return errors.Is(err, ErrNoContent)
}

// IsBackendUnavailable reports whether err is a search backend failure.
func IsBackendUnavailable(err error) bool {
	return errors.Is(err, ErrBackendUnavail)
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNoContent):
		return http.StatusNoContent
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrBackendUnavail):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
