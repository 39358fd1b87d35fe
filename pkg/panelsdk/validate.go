package panelsdk

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report json names so messages match what the backend calls the field.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	return v
}

var fieldMessages = map[string]string{
	"required": "the field '%s' is required",
	"email":    "the field '%s' must be a valid email address",
	"alphanum": "the field '%s' must contain letters and digits only",
	"min":      "the field '%s' must be at least %s",
	"max":      "the field '%s' must be at most %s",
	"gte":      "the field '%s' must be greater than or equal to %s",
	"oneof":    "the field '%s' must be one of [%s]",
	"nefield":  "the field '%s' must differ from '%s'",
	"gtfield":  "the field '%s' must be after '%s'",
}

func fieldMessage(e validator.FieldError) string {
	if msg, ok := fieldMessages[e.Tag()]; ok {
		if strings.Count(msg, "%s") == 2 {
			return fmt.Sprintf(msg, e.Field(), e.Param())
		}
		return fmt.Sprintf(msg, e.Field())
	}
	return fmt.Sprintf("the field '%s' is invalid: %s", e.Field(), e.Tag())
}

// validateStruct runs struct tag validation and converts failures into a
// KindValidation APIError.
func validateStruct(what string, s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return validationError(fmt.Sprintf("invalid %s: %v", what, err), nil)
	}

	fields := make(map[string]string, len(verrs))
	for _, e := range verrs {
		fields[e.Field()] = fieldMessage(e)
	}
	return validationError("invalid "+what, fields)
}
