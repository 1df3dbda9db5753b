// Package apperror defines the error taxonomy shared by every layer.
//
// Services and repositories return errors that wrap one of the sentinels
// below. The HTTP boundary (handler.writeError) maps each sentinel to a
// status code and a machine-readable code exactly once, so nothing in
// between needs to know about HTTP.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrBadRequest   = errors.New("bad request")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrTokenExpired = errors.New("token expired")
	ErrUnavailable  = errors.New("unavailable")
	ErrTimeout      = errors.New("timeout")
)

// FieldError is one field-level validation message.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type AppError struct {
	Err     error        // sentinel, matched with errors.Is
	Message string       // human-readable message, safe for clients
	Field   string       // optional: field causing the error
	Code    string       // optional: overrides the code derived from Err
	Details []FieldError // optional: field-level details for validation errors
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// ValidationFailed reports a single invalid field.
func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
		Details: []FieldError{{Field: field, Message: message}},
	}
}

// Validation reports several invalid fields at once.
func Validation(details []FieldError) *AppError {
	msg := "Validation failed"
	if len(details) == 1 {
		msg = details[0].Message
	}
	return &AppError{
		Err:     ErrValidation,
		Message: msg,
		Details: details,
	}
}

// BadRequest is a malformed request that is not a field validation
// failure, e.g. a missing search query or an unparsable body.
func BadRequest(code, message string) *AppError {
	return &AppError{
		Err:     ErrBadRequest,
		Message: message,
		Code:    code,
	}
}

// Conflict reports a duplicate value for a unique field.
func Conflict(resource, field string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s with this %s already exists", resource, field),
		Field:   field,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

func TokenExpired() *AppError {
	return &AppError{
		Err:     ErrTokenExpired,
		Message: "Token expired",
	}
}

// Unavailable wraps a failure to reach the backing store.
func Unavailable(op string, cause error) *AppError {
	return &AppError{
		Err:     errors.Join(ErrUnavailable, cause),
		Message: fmt.Sprintf("%s: service unavailable", op),
	}
}

// Timeout wraps a store call that ran past its deadline.
func Timeout(op string, cause error) *AppError {
	return &AppError{
		Err:     errors.Join(ErrTimeout, cause),
		Message: fmt.Sprintf("%s: timed out", op),
	}
}

// Machine-readable codes sent to clients.
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeTokenExpired = "TOKEN_EXPIRED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeDuplicate    = "DUPLICATE_FIELD"
	CodeUnavailable  = "SERVICE_UNAVAILABLE"
	CodeTimeout      = "TIMEOUT"
	CodeBadRequest   = "BAD_REQUEST"
	CodeInternal     = "INTERNAL_ERROR"
)

// Code returns the client-facing code for err. An explicit AppError.Code
// wins; otherwise the code follows the wrapped sentinel.
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != "" {
		return appErr.Code
	}
	switch {
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrTokenExpired):
		return CodeTokenExpired
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrConflict):
		return CodeDuplicate
	case errors.Is(err, ErrTimeout):
		return CodeTimeout
	case errors.Is(err, ErrUnavailable):
		return CodeUnavailable
	case errors.Is(err, ErrBadRequest):
		return CodeBadRequest
	}
	return CodeInternal
}
