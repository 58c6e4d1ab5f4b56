package auth

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Names end up in storage keys, keep them to a safe alphabet
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	return v
}

type SignupRequest struct {
	Username string `validate:"required,min=2,max=32,username"`
	Password string `validate:"required,min=6,max=72"`
}

func ValidateSignup(req SignupRequest) error {
	return validate.Struct(req)
}
