package auth

import (
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// ValidateUsername accepts 3-20 letters, digits or underscores.
func ValidateUsername(s string) bool {
	return usernamePattern.MatchString(s)
}

// ValidateEmail accepts local@domain.tld with a TLD of two or more letters.
func ValidateEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// requestValidator returns the shared validator with the username and
// email_strict tags registered.
func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return ValidateUsername(fl.Field().String())
		})
		_ = validate.RegisterValidation("email_strict", func(fl validator.FieldLevel) bool {
			return ValidateEmail(fl.Field().String())
		})
	})
	return validate
}
