package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type requestValidator struct {
	validate *validator.Validate
}

func newRequestValidator() *requestValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &requestValidator{validate: v}
}

// Validate implements echo.Validator.
func (v *requestValidator) Validate(i any) error {
	return v.validate.Struct(i)
}

// validationMessage names the first failing field by its JSON key.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if fe.Tag() == "required" {
			return fmt.Sprintf("%s is required", fe.Field())
		}
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
	return err.Error()
}
