package coordinator

import (
	"strings"

	dErrors "enrolld/pkg/domain-errors"
)

// SanitizePhone strips formatting from a phone number. A blank or
// placeholder-only value ("", "-") sanitizes to the empty string, meaning the
// phone attribute is omitted entirely rather than sent as an empty string. A
// value that still contains non-digits after stripping is malformed.
func SanitizePhone(raw string) (string, error) {
	// A parenthesized trunk zero ("+44 (0) ...") is dialing guidance, not
	// part of the number. Drop the whole group before stripping, otherwise
	// the zero survives as a digit.
	trimmed := strings.ReplaceAll(strings.TrimSpace(raw), "(0)", "")

	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '.', '(', ')', '/':
			return -1
		}
		return r
	}, trimmed)

	if cleaned == "" {
		return "", nil
	}

	digits := cleaned
	if digits[0] == '+' {
		digits = digits[1:]
	}
	if digits == "" {
		return "", nil
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", dErrors.Newf(dErrors.CodePhoneNumberInvalid, "phone number %q is not valid", raw)
		}
	}
	return cleaned, nil
}
