package handler

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/cinema-ticketing/internal/apperr"
)

// Validator adapts go-playground/validator to echo's Validator interface.
// Field names in messages are the JSON names the client sent.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

func (cv *Validator) Validate(i any) error {
	err := cv.v.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.BadRequest("Invalid request body")
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return apperr.BadRequest(fe.Field() + " is required")
	case "email":
		return apperr.BadRequest("Invalid email format")
	case "min", "gte":
		return apperr.BadRequest(fe.Field() + " must be at least " + fe.Param())
	case "gt":
		return apperr.BadRequest(fe.Field() + " must be greater than " + fe.Param())
	case "max", "lte":
		return apperr.BadRequest(fe.Field() + " must be at most " + fe.Param())
	default:
		return apperr.BadRequest(fe.Field() + " is invalid")
	}
}
