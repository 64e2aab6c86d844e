package domain

import (
	"testing"
)

// FuzzParseMemberID verifies the trust-boundary invariant: arbitrary input
// never panics and never yields both a value and an error.
func FuzzParseMemberID(f *testing.F) {
	f.Add("")
	f.Add("MSW12345678901")
	f.Add("MPW1234567890")
	f.Add("not-a-member-id")
	f.Add("M\x00W12345678901")
	f.Add("'; DROP TABLE profiles;--")

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseMemberID(input)

		if err == nil && id.IsNil() {
			t.Errorf("ParseMemberID(%q) returned nil ID without error", input)
		}
		if err != nil && !id.IsNil() {
			t.Errorf("ParseMemberID(%q) returned both ID %q and error %v", input, id, err)
		}
	})
}
