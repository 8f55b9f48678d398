package workflow

import (
	"github.com/dukex/flightline/pkg/opserr"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func validateInput(v any) error {
	return opserr.Validate(validate, v)
}
