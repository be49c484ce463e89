package service

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const minPasswordLength = 10

var (
	hasUpper   = regexp.MustCompile(`[A-Z]`)
	hasLower   = regexp.MustCompile(`[a-z]`)
	hasDigit   = regexp.MustCompile(`[0-9]`)
	hasSpecial = regexp.MustCompile(`[^A-Za-z0-9\s]`)
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationError{Fields: map[string]string{"body": err.Error()}}
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldName(fe.Field())] = describe(fe)
	}
	return &ValidationError{Fields: fields}
}

func fieldName(name string) string {
	if name == "" {
		return name
	}
	return strings.ToLower(name[:1]) + name[1:]
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "is invalid"
	}
}

// passwordProblem returns an empty string when password meets the
// complexity rules.
func passwordProblem(password string) string {
	switch {
	case utf8.RuneCountInString(password) < minPasswordLength:
		return "must be at least 10 characters"
	case !hasUpper.MatchString(password):
		return "must contain an uppercase letter"
	case !hasLower.MatchString(password):
		return "must contain a lowercase letter"
	case !hasDigit.MatchString(password):
		return "must contain a digit"
	case !hasSpecial.MatchString(password):
		return "must contain a special character"
	}
	return ""
}
