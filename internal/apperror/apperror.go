package apperror

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Services and repositories wrap these so the HTTP
// boundary can classify failures with errors.Is without knowing the
// concrete message.
var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
)

// AppError carries a user-facing message plus optional structured
// detail (e.g. field-level validation messages).
type AppError struct {
	Err     error
	Message string
	Data    interface{}
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func Validation(message string, data interface{}) *AppError {
	return &AppError{Err: ErrValidation, Message: message, Data: data}
}

func Unauthorized(message string) *AppError {
	return &AppError{Err: ErrUnauthorized, Message: message}
}

func Forbidden(message string) *AppError {
	return &AppError{Err: ErrForbidden, Message: message}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s with ID %s not found", resource, id),
	}
}

// NotFoundMsg is NotFound with a verbatim message, for cases where the
// client contract pins the exact wording.
func NotFoundMsg(message string) *AppError {
	return &AppError{Err: ErrNotFound, Message: message}
}
