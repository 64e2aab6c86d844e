package email

import (
	"strings"
	"unicode"
)

// Normalize lowercases and trims an email address. All cross-system email
// comparisons go through this so "A@B.com" and "a@b.com" resolve to the same
// identity.
func Normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Equal compares two addresses case-insensitively.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// IsPlausible is a cheap structural check: one '@' with non-empty local part
// and a domain containing a dot. Full RFC validation is the provider's job.
func IsPlausible(email string) bool {
	at := strings.IndexByte(email, '@')
	if at < 1 || at == len(email)-1 {
		return false
	}
	domain := email[at+1:]
	if strings.IndexByte(domain, '@') >= 0 {
		return false
	}
	dot := strings.IndexByte(domain, '.')
	return dot > 0 && dot < len(domain)-1
}

// RewriteDisplayName substitutes old name tokens with new ones inside a
// composite display name, preserving any surrounding tokens the provider may
// have added (titles, suffixes). Used on the upgrade path when a signup
// carries a corrected name.
func RewriteDisplayName(display, oldFirst, oldLast, newFirst, newLast string) string {
	if display == "" {
		return strings.TrimSpace(newFirst + " " + newLast)
	}
	tokens := strings.Fields(display)
	for i, tok := range tokens {
		switch {
		case oldFirst != "" && strings.EqualFold(tok, oldFirst):
			tokens[i] = newFirst
		case oldLast != "" && strings.EqualFold(tok, oldLast):
			tokens[i] = newLast
		}
	}
	return strings.Join(tokens, " ")
}

// DeriveNameFromEmail guesses first/last name tokens from the local part of an
// address. Used for migrated records that arrive without names.
func DeriveNameFromEmail(email string) (string, string) {
	localPart := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		localPart = email[:at]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})

	if len(parts) == 0 {
		return "User", "User"
	}

	first := capitalize(parts[0])
	last := "User"
	if len(parts) > 1 {
		last = capitalize(parts[len(parts)-1])
	}

	return first, last
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
