package validator

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	apperrors "github.com/charlesng35/studyhall/pkg/errors"
)

const (
	MaxNameLength     = 24
	MaxTitleLength    = 120
	MaxPostBodyLength = 5000
	MaxReplyLength    = 3000
	MaxUsernameLength = 32
)

// Profile field labels used in name validation messages.
const (
	LabelFirstName          = "First Name"
	LabelMiddleName         = "Middle Name"
	LabelLastName           = "Last Name"
	LabelPreferredFirstName = "Preferred First Name"
)

var (
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	namePattern     = regexp.MustCompile(`^[A-Za-z]+(?: [A-Za-z]+)*$`)
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
)

// ValidateName checks a personal name field. The label is echoed in every message.
func ValidateName(value, label string) error {
	if value == "" {
		return apperrors.NewValidation(label + " cannot be empty.")
	}
	if utf8.RuneCountInString(value) > MaxNameLength {
		return apperrors.NewValidation(fmt.Sprintf("%s cannot exceed %d characters.", label, MaxNameLength))
	}
	if !namePattern.MatchString(value) {
		return apperrors.NewValidation(label + " must contain only alphabetic characters and a single space between letters.")
	}
	return nil
}

// ValidateEmail checks the local@domain.tld shape.
func ValidateEmail(value string) error {
	if value == "" {
		return apperrors.NewValidation("Email cannot be empty.")
	}
	if !emailPattern.MatchString(value) {
		return apperrors.NewValidation("Invalid email format. Expected something like user@example.com")
	}
	return nil
}

// ValidateAllFields runs every profile check and joins the failures with newlines.
// It returns nil only when every field passes.
func ValidateAllFields(first, middle, last, preferred, email string) error {
	checks := []error{
		ValidateName(first, LabelFirstName),
		ValidateName(middle, LabelMiddleName),
		ValidateName(last, LabelLastName),
		ValidateName(preferred, LabelPreferredFirstName),
		ValidateEmail(email),
	}

	var b strings.Builder
	for _, err := range checks {
		if err == nil {
			continue
		}
		b.WriteString(apperrors.UserMessage(err))
		b.WriteByte('\n')
	}

	msg := strings.TrimSpace(b.String())
	if msg == "" {
		return nil
	}
	return apperrors.NewValidation(msg)
}

// ValidatePostFields checks title then body and reports the first failure only.
func ValidatePostFields(title, body string) error {
	if err := checkText(title, "Title", MaxTitleLength); err != nil {
		return err
	}
	return checkText(body, "Message", MaxPostBodyLength)
}

// ValidateReplyBody checks a reply body.
func ValidateReplyBody(body string) error {
	return checkText(body, "Reply", MaxReplyLength)
}

// ValidateUsername accepts 1 to 32 letters, digits, dots, underscores or dashes.
func ValidateUsername(value string) error {
	if strings.TrimSpace(value) == "" {
		return apperrors.NewValidation("Username cannot be empty.")
	}
	if utf8.RuneCountInString(value) > MaxUsernameLength {
		return apperrors.NewValidation(fmt.Sprintf("Username cannot exceed %d characters.", MaxUsernameLength))
	}
	if !usernamePattern.MatchString(value) {
		return apperrors.NewValidation("Username may contain only letters, digits, '.', '_' and '-'.")
	}
	return nil
}

// checkText trims first, then rejects empty, then enforces the upper bound.
func checkText(value, label string, max int) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return apperrors.NewValidation(label + " must not be empty.")
	}
	if utf8.RuneCountInString(trimmed) > max {
		return apperrors.NewValidation(fmt.Sprintf("%s must be 1–%d characters.", label, max))
	}
	return nil
}
