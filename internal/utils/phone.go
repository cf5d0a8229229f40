package utils

import (
	"regexp"
	"strings"
)

var (
	phoneRegex    = regexp.MustCompile(`^\+?[1-9]\d{6,14}$`)
	nonPhoneChars = regexp.MustCompile(`[^\d+]`)
)

// IsValidPhone reports whether the number is plausible E.164 after
// stripping separators.
func IsValidPhone(phone string) bool {
	return phoneRegex.MatchString(nonPhoneChars.ReplaceAllString(phone, ""))
}

// NormalizePhone strips spaces, dashes and parentheses and ensures a
// leading +, the shape SMS providers expect.
func NormalizePhone(phone string) string {
	normalized := nonPhoneChars.ReplaceAllString(phone, "")
	if !strings.HasPrefix(normalized, "+") {
		normalized = "+" + normalized
	}
	return normalized
}
