package utils

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct runs validator tags on input and converts the first failure
// into a ValidationError so callers never see validator internals.
func ValidateStruct(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		first := verrs[0]
		return NewValidationError(first.Field(), "failed on '"+first.Tag()+"' validation")
	}
	return NewValidationError("", err.Error())
}
