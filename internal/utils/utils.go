package utils

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	ErrInvalidPhone = errors.New("invalid phone number")

	// Nigerian numbers: +234 or a leading 0, then ten digits.
	phonePattern = regexp.MustCompile(`^(?:\+234|0)\d{10}$`)
)

// CleanPhone normalizes a phone number to its +234 form.
func CleanPhone(number string) (string, error) {
	number = strings.ToLower(strings.TrimSpace(number))
	if !phonePattern.MatchString(number) {
		return "", ErrInvalidPhone
	}
	if strings.HasPrefix(number, "0") {
		return "+234" + number[1:], nil
	}
	return number, nil
}

// PasswordLengthMessage returns a client-facing complaint when p falls outside
// [min, max] runes, or "" when it fits. max <= 0 means unbounded.
func PasswordLengthMessage(p string, min, max int) string {
	n := utf8.RuneCountInString(p)
	if n < min {
		return fmt.Sprintf("Ensure this field has at least %d characters.", min)
	}
	if max > 0 && n > max {
		return fmt.Sprintf("Ensure this field has no more than %d characters.", max)
	}
	return ""
}
