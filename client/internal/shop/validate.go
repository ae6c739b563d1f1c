package shop

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// Length rules applied before a form is submitted.
const (
	MinUsernameLen = 6
	MinPasswordLen = 6
	PhoneLen       = 11
)

// ErrValidation is wrapped by every form validation failure.
var ErrValidation = errors.New("validation failed")

// ValidateUsername requires at least MinUsernameLen characters.
func ValidateUsername(s string) error {
	if utf8.RuneCountInString(s) < MinUsernameLen {
		return fmt.Errorf("%w: username must be at least %d characters", ErrValidation, MinUsernameLen)
	}
	return nil
}

// ValidatePassword requires at least MinPasswordLen characters.
func ValidatePassword(s string) error {
	if utf8.RuneCountInString(s) < MinPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, MinPasswordLen)
	}
	return nil
}

// ValidatePhone requires exactly PhoneLen characters.
func ValidatePhone(s string) error {
	if utf8.RuneCountInString(s) != PhoneLen {
		return fmt.Errorf("%w: phone must be %d digits", ErrValidation, PhoneLen)
	}
	return nil
}
