package opserr

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate checks the validate tags of v and reports every failing field as
// INVALID_INPUT, each entry being "field tag".
func Validate(validate *validator.Validate, v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return New(CodeInvalidInput, "%s", err.Error())
	}

	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, strings.ToLower(fe.Field())+" "+fe.Tag())
	}

	return WithMissing(CodeInvalidInput, "invalid input", fields)
}
