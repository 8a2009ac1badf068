package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/dom/todo-tracker/internal/domain"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names so messages match the request payload.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// validateStruct checks input against its `validate` tags and returns a
// *domain.ValidationError when any rule fails.
func validateStruct(input interface{}) error {
	verr := domain.NewValidationError()
	collect(verr, "", validate.Struct(input))
	return verr.Err()
}

// validateField checks a single value against rules, recording failures
// under field.
func validateField(verr *domain.ValidationError, field string, value interface{}, rules string) {
	collect(verr, field, validate.Var(value, rules))
}

func collect(verr *domain.ValidationError, field string, err error) {
	if err == nil {
		return
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		verr.Add(field, err.Error())
		return
	}
	for _, fe := range fieldErrs {
		name := field
		if name == "" {
			name = fe.Field()
		}
		verr.Add(name, message(name, fe))
	}
}

func message(field string, fe validator.FieldError) string {
	label := strings.ReplaceAll(field, "_", " ")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", label)
	case "email":
		return fmt.Sprintf("The %s field must be a valid email address.", label)
	case "max":
		return fmt.Sprintf("The %s field must not be greater than %s characters.", label, fe.Param())
	default:
		return fmt.Sprintf("The %s field is invalid.", label)
	}
}
