// Package apperror defines the domain errors shared by every layer.
//
// Each error is an *AppError carrying a human-readable message and wrapping
// one of the sentinel values below, so callers can branch with errors.Is
// and still show the message to the user.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("Validation Error")
	ErrBusy       = errors.New("busy")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
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

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Busy returns an AppError for work rejected because the same work is
// already running. HTTP handlers map this to 409 Conflict.
func Busy(message string) *AppError {
	return &AppError{
		Err:     ErrBusy,
		Message: message,
	}
}
