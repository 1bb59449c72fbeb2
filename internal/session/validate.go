package session

import (
	"fmt"
	"regexp"
	"strings"
)

// Client-side checks per the error taxonomy: malformed input is rejected
// inline and never reaches the wire.

const minPasswordLength = 8

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	codePattern  = regexp.MustCompile(`^[0-9]{6}$`)
)

func validateEmail(email string) error {
	if !emailPattern.MatchString(strings.TrimSpace(email)) {
		return fmt.Errorf("%w: malformed email", ErrInvalidInput)
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password shorter than %d characters", ErrInvalidInput, minPasswordLength)
	}
	return nil
}

func validateCode(code string) error {
	if !codePattern.MatchString(strings.TrimSpace(code)) {
		return fmt.Errorf("%w: code must be 6 digits", ErrInvalidInput)
	}
	return nil
}
