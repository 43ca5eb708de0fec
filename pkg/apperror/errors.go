package apperror

import (
	"fmt"
	"net/http"
)

// ErrorType is the stable error taxonomy exposed to API clients.
type ErrorType string

const (
	TypeAuthentication      ErrorType = "authentication_error"
	TypeValidation          ErrorType = "validation_error"
	TypeInvalidRequest      ErrorType = "invalid_request_error"
	TypeIdempotencyConflict ErrorType = "idempotency_conflict"
	TypeRateLimited         ErrorType = "rate_limited"
	TypeAPI                 ErrorType = "api_error"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Code       string    `json:"code,omitempty"`  // processor / domain code, e.g. "05"
	Param      string    `json:"param,omitempty"` // offending request field
	HTTPStatus int       `json:"-"`
	Err        error     `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(typ ErrorType, message string, httpStatus int) *AppError {
	return &AppError{
		Type:       typ,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// ---- Authentication ----

func ErrMissingAPIKey() *AppError {
	return New(TypeAuthentication, "Missing API key. Pass it in the Authorization header as 'Bearer <key>'", http.StatusUnauthorized)
}

func ErrInvalidAPIKey() *AppError {
	return New(TypeAuthentication, "Invalid API key", http.StatusUnauthorized)
}

// ---- Validation ----

// Validation returns a request-shape error, optionally naming the field.
func Validation(message string) *AppError {
	return New(TypeValidation, message, http.StatusBadRequest)
}

func ValidationParam(message, param string) *AppError {
	e := New(TypeValidation, message, http.StatusBadRequest)
	e.Param = param
	return e
}

// ---- Invalid request (well-shaped but semantically wrong) ----

func ErrNotFound(entity string) *AppError {
	return New(TypeInvalidRequest, fmt.Sprintf("No such %s", entity), http.StatusNotFound)
}

func ErrInvalidState(message string) *AppError {
	e := New(TypeInvalidRequest, message, http.StatusBadRequest)
	e.Code = "invalid_state"
	return e
}

func ErrInvalidAmount(message string) *AppError {
	e := New(TypeInvalidRequest, message, http.StatusBadRequest)
	e.Code = "invalid_amount"
	return e
}

func ErrInvalidToken() *AppError {
	e := New(TypeInvalidRequest, "The provided card token is invalid, expired, or already used", http.StatusBadRequest)
	e.Code = "invalid_token"
	return e
}

// ErrCardDeclined carries the processor's decline code and message.
func ErrCardDeclined(code, message string) *AppError {
	if message == "" {
		message = "The card was declined"
	}
	e := New(TypeInvalidRequest, message, http.StatusBadRequest)
	e.Code = code
	return e
}

func ErrSessionExpired() *AppError {
	return New(TypeInvalidRequest, "This checkout session has expired", http.StatusGone)
}

// ---- Idempotency ----

func ErrIdempotencyConflict() *AppError {
	return New(TypeIdempotencyConflict,
		"The Idempotency-Key was used with a different request body", http.StatusConflict)
}

// ---- Rate limiting ----

func ErrRateLimited() *AppError {
	return New(TypeRateLimited, "Too many requests. Please retry later", http.StatusTooManyRequests)
}

// ---- Internal ----

// Internal wraps an unexpected failure as an api_error.
func Internal(err error) *AppError {
	return &AppError{
		Type:       TypeAPI,
		Message:    "An internal error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// Upstream wraps an acquirer transport failure. Domain declines do not go
// through here; they are ErrCardDeclined.
func Upstream(err error) *AppError {
	return &AppError{
		Type:       TypeAPI,
		Message:    "The payment processor could not be reached",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}
