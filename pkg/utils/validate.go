package utils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FormatValidationError renders validator errors as field -> message. Any
// other error comes back under the "request" key.
func FormatValidationError(err error) map[string]string {
	result := make(map[string]string)

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		result["request"] = err.Error()
		return result
	}

	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())

		switch fe.Tag() {
		case "required":
			result[field] = fmt.Sprintf("%s is required", field)
		case "email":
			result[field] = fmt.Sprintf("%s must be a valid email", field)
		case "min":
			result[field] = fmt.Sprintf("%s must be at least %s", field, fe.Param())
		case "max":
			result[field] = fmt.Sprintf("%s must be at most %s", field, fe.Param())
		case "gt":
			result[field] = fmt.Sprintf("%s must be greater than %s", field, fe.Param())
		case "gte":
			result[field] = fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
		case "oneof":
			result[field] = fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
		case "url":
			result[field] = fmt.Sprintf("%s must be a valid URL", field)
		case "uuid", "uuid4":
			result[field] = fmt.Sprintf("%s must be a valid UUID", field)
		default:
			result[field] = fmt.Sprintf("%s is invalid", field)
		}
	}
	return result
}
