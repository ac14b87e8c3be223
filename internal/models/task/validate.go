package task

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	TitleMin       = 3
	TitleMax       = 100
	DescriptionMin = 10
	DescriptionMax = 500
)

var validate = validator.New()

// ValidationError ошибка одного поля, Message показывается пользователю как есть
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func Trim(s string) string {
	return strings.TrimSpace(s)
}

func ValidateTitle(title string) error {
	return validateField("title", "Task title", Trim(title), TitleMin, TitleMax)
}

func ValidateDescription(description string) error {
	return validateField("description", "Task description", Trim(description), DescriptionMin, DescriptionMax)
}

// ValidateInput проверяет поля по порядку и возвращает первую ошибку
func ValidateInput(in Input) error {
	if err := ValidateTitle(in.Title); err != nil {
		return err
	}
	return ValidateDescription(in.Description)
}

// ValidatePatch проверяет только переданные поля
func ValidatePatch(p Patch) error {
	if p.Title != nil {
		if err := ValidateTitle(*p.Title); err != nil {
			return err
		}
	}
	if p.Description != nil {
		if err := ValidateDescription(*p.Description); err != nil {
			return err
		}
	}
	return nil
}

func validateField(field, label, value string, min, max int) error {
	rule := fmt.Sprintf("required,min=%d,max=%d", min, max)
	err := validate.Var(value, rule)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{Field: field, Message: label + " is invalid"}
	}

	var message string
	switch fieldErrs[0].Tag() {
	case "required":
		message = fmt.Sprintf("%s is required", label)
	case "min":
		message = fmt.Sprintf("%s must be at least %d characters", label, min)
	case "max":
		message = fmt.Sprintf("%s must be at most %d characters", label, max)
	default:
		message = label + " is invalid"
	}
	return &ValidationError{Field: field, Message: message}
}
