package services

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/dmitrijs2005/kefi/internal/client/autherr"
	"github.com/go-playground/validator/v10"
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// fieldMessages maps validation tags to friendly messages. %[1]s is the
// JSON field name, %[2]s the tag parameter.
var fieldMessages = map[string]string{
	"required": "The field '%[1]s' is required.",
	"email":    "The field '%[1]s' must be a valid email address.",
	"min":      "The field '%[1]s' must be at least %[2]s characters long.",
	"max":      "The field '%[1]s' must be no longer than %[2]s characters.",
	"oneof":    "The field '%[1]s' must be one of: %[2]s.",
	"datetime": "The field '%[1]s' must be a date in YYYY-MM-DD format.",
	"username": "The field '%[1]s' may contain only letters, digits and @/./+/-/_ characters.",
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	return v
}

func fieldMessage(e validator.FieldError) string {
	if tpl, ok := fieldMessages[e.Tag()]; ok {
		return fmt.Sprintf(tpl, e.Field(), e.Param())
	}
	return fmt.Sprintf("The field '%s' is invalid: %s", e.Field(), e.Tag())
}

// validationError turns validator output into a Validation failure
// carrying per-field messages. Non-validator errors pass through.
func validationError(err error, message string) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate input: %w", err)
	}

	ae := autherr.New(autherr.KindValidation, message)
	ae.Fields = make(map[string][]string, len(verrs))
	for _, e := range verrs {
		ae.Fields[e.Field()] = append(ae.Fields[e.Field()], fieldMessage(e))
	}
	return ae
}
