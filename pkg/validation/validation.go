// Package validation validates request DTOs with struct tags.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	appErrors "awsugmdu-backend/pkg/errors"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// newValidator reports fields by their JSON names so messages match the
// request bodies clients send.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Struct validates a struct based on its validation tags and returns a
// VALIDATION AppError describing every failing field.
func Struct(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		return appErrors.NewValidation(formatValidationError(err))
	}
	return nil
}

func formatValidationError(err error) string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		msgs := make([]string, 0, len(validationErrors))
		for _, e := range validationErrors {
			msgs = append(msgs, formatFieldError(e))
		}
		return strings.Join(msgs, "; ")
	}
	return err.Error()
}

func formatFieldError(e validator.FieldError) string {
	field := lowerFirst(e.Field())

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "required_without":
		return fmt.Sprintf("%s is required when %s is empty", field, lowerFirst(e.Param()))
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, e.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
