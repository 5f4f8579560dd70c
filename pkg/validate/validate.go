package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	pkgerrors "github.com/angelmondragon/ticketcart/pkg/errors"
	"github.com/go-playground/validator/v10"
)

// indonesianPhone accepts +62 or 0 followed by 9 to 12 digits.
var indonesianPhone = regexp.MustCompile(`^(?:\+62|0)[0-9]{9,12}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	_ = v.RegisterValidation("idphone", func(fl validator.FieldLevel) bool {
		return IsPhone(fl.Field().String())
	})
	return v
}

// IsPhone reports whether value is an Indonesian mobile number. Spaces and
// dashes are ignored.
func IsPhone(value string) bool {
	cleaned := strings.NewReplacer(" ", "", "-", "").Replace(value)
	return indonesianPhone.MatchString(cleaned)
}

// Struct validates dest and converts failures into a VALIDATION error whose
// details map json field names to messages.
func Struct(dest any) error {
	if err := validate.Struct(dest); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

func formatValidationErrors(err error) *pkgerrors.Error {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		details := map[string]string{}
		for _, fieldErr := range errs {
			details[fieldErr.Field()] = validationMessage(fieldErr)
		}
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "email":
		return "must be a valid email"
	case "idphone":
		return "must be a valid phone number (08xx or +62xx)"
	}
	return "is invalid"
}
