package shared

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator wraps go-playground/validator with the registry's custom tags and
// JSON field naming.
type Validator struct {
	validate *validator.Validate
	region   string
}

// NewValidator builds a Validator. region is the phone default region (ISO 3166 alpha-2).
func NewValidator(region string) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	mustRegisterValidation(v, "phone", func(fl validator.FieldLevel) bool {
		_, err := NormalizePhone(fl.Field().String(), region)
		return err == nil
	})
	return &Validator{validate: v, region: region}
}

// mustRegisterValidation panics when tag cannot be registered.
func mustRegisterValidation(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("registry: register %q validation: %v", tag, err))
	}
}

// Region returns the default phone region.
func (v *Validator) Region() string {
	return v.region
}

// Struct validates s and returns every failing field, or nil.
func (v *Validator) Struct(s any) *ValidationError {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	out := &ValidationError{}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		out.Add("non_field_errors", err.Error())
		return out
	}
	for _, fe := range fieldErrs {
		out.Add(fe.Field(), message(fe))
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return MsgRequired
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "gt", "gte":
		return fmt.Sprintf("Ensure this value is greater than %s.", fe.Param())
	case "phone":
		return MsgInvalidPhone
	default:
		return fmt.Sprintf("Failed on the %q rule.", fe.Tag())
	}
}
