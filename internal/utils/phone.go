package utils

import (
	"regexp"
	"strings"
)

var (
	phoneRegex    = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
	nonPhoneChars = regexp.MustCompile(`[^\d+]`)
)

func IsValidPhone(phone string) bool {
	cleaned := nonPhoneChars.ReplaceAllString(phone, "")
	return phoneRegex.MatchString(cleaned)
}

// NormalizePhone canonicalizes a phone number so two spellings of the same
// Vietnamese number compare equal ("0912 345 678", "+84912345678" and
// "84912345678" all normalize to "+84912345678"). Fraud clustering depends
// on this.
func NormalizePhone(phone string) string {
	normalized := nonPhoneChars.ReplaceAllString(phone, "")
	if normalized == "" {
		return ""
	}

	switch {
	case strings.HasPrefix(normalized, "+"):
		// already E.164-ish
	case strings.HasPrefix(normalized, "84"):
		normalized = "+" + normalized
	case strings.HasPrefix(normalized, "0"):
		normalized = "+84" + normalized[1:]
	default:
		normalized = "+" + normalized
	}

	return normalized
}

// NormalizeAddress collapses whitespace and case so near-identical
// addresses cluster together.
func NormalizeAddress(address string) string {
	lowered := strings.ToLower(strings.TrimSpace(address))
	return strings.Join(strings.Fields(lowered), " ")
}
