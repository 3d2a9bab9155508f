package utils

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	cinRegex   = regexp.MustCompile(`^[A-Z]{1,2}\d{6,7}$`)
	phoneRegex = regexp.MustCompile(`^\+?212[0-9]{9}$`)
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	ctrlRegex  = regexp.MustCompile(`[\x00-\x1f\x7f]`)
)

// NormalizeCIN upper-cases and trims a national identity card number
func NormalizeCIN(cin string) string {
	return strings.ToUpper(strings.TrimSpace(cin))
}

// ValidateCIN validates a Moroccan national identity card number: one or two
// letters followed by six or seven digits. Input is normalized first.
func ValidateCIN(cin string) error {
	if !cinRegex.MatchString(NormalizeCIN(cin)) {
		return fmt.Errorf("invalid CIN format: %s", cin)
	}
	return nil
}

// ValidatePhone validates a Moroccan phone number with the 212 country code
func ValidatePhone(phone string) error {
	if !phoneRegex.MatchString(phone) {
		return fmt.Errorf("invalid phone format: %s", phone)
	}
	return nil
}

// ValidateEmail validates an email address
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}

// SanitizeString removes control characters and surrounding whitespace
func SanitizeString(s string) string {
	return strings.TrimSpace(ctrlRegex.ReplaceAllString(s, ""))
}
