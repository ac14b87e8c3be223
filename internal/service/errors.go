package service

import (
	"errors"
	"fmt"
)

const (
	CodeNotFound     = "NOT_FOUND"
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeConflict     = "CONFLICT"
)

type BusinessError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

func (b *BusinessError) Error() string {
	if b.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", b.Code, b.Message, b.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", b.Code, b.Message)
}

func (b *BusinessError) Unwrap() error {
	return b.Err
}

func AsBusinessError(err error) (*BusinessError, bool) {
	var busErr *BusinessError
	if errors.As(err, &busErr) {
		return busErr, true
	}
	return nil, false
}

// NewNotFound одинаков для "нет такой" и "чужая": наличие чужих задач не раскрываем
func NewNotFound(resource string) *BusinessError {
	return &BusinessError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Details: map[string]any{
			"resource": resource,
		},
	}
}

func NewValidationError(field, message string) *BusinessError {
	return &BusinessError{
		Code:    CodeValidation,
		Message: message,
		Details: map[string]any{
			"field": field,
		},
	}
}

func NewUnauthorized(message string) *BusinessError {
	return &BusinessError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

func NewConflict(message string) *BusinessError {
	return &BusinessError{
		Code:    CodeConflict,
		Message: message,
	}
}
