package validator

import (
	"strings"
	"unicode/utf8"

	apperrors "github.com/charlesng35/studyhall/pkg/errors"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 32

	passwordSpecials = "~`!@#$%^&*()_-+={}[]|\\:;\"'<>,.?/"
)

// ValidatePassword applies the account password policy. All missing requirements are
// reported together in a fixed order.
func ValidatePassword(password string) error {
	if password == "" {
		return apperrors.NewValidation("*** Error *** The password is empty!")
	}
	if utf8.RuneCountInString(password) > MaxPasswordLength {
		return apperrors.NewValidation("*** Error *** The password is too long! It must be at most 32 characters.")
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		default:
			return apperrors.NewValidation("*** Error *** An invalid character has been found!")
		}
	}

	var missing strings.Builder
	if !upper {
		missing.WriteString("Upper case; ")
	}
	if !lower {
		missing.WriteString("Lower case; ")
	}
	if !digit {
		missing.WriteString("Numeric digits; ")
	}
	if !special {
		missing.WriteString("Special character; ")
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		missing.WriteString("Long Enough; ")
	}
	if missing.Len() == 0 {
		return nil
	}
	return apperrors.NewValidation(missing.String() + "conditions were not satisfied")
}
