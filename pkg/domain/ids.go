// Package domain holds the primitive identity types shared across modules.
// Parsing functions enforce validity at trust boundaries so the rest of the
// code can treat the types as already-checked.
package domain

import (
	"regexp"
	"strings"
)

// MemberID is the deterministic, group/source-tagged identifier assigned once
// per identity. Shape: M<groupCode><sourceCode><numericTail>, where the tail is
// 10 digits for short-tail groups and 11 digits otherwise.
type MemberID string

var memberIDPattern = regexp.MustCompile(`^M[A-Z][A-Z]\d{10,11}$`)

// ParseMemberID validates an externally supplied member ID.
func ParseMemberID(s string) (MemberID, error) {
	if !memberIDPattern.MatchString(s) {
		return "", ErrInvalidMemberID
	}
	return MemberID(s), nil
}

func (m MemberID) String() string { return string(m) }

// IsNil reports whether no member ID has been assigned.
func (m MemberID) IsNil() bool { return m == "" }

// MembershipGroup names a provider-side group a signup can request. The
// newsletter group is never requestable; it marks accounts eligible for the
// upgrade path.
type MembershipGroup string

const (
	GroupStandard   MembershipGroup = "standard-members"
	GroupPremium    MembershipGroup = "premium-members"
	GroupTrial      MembershipGroup = "trial-members"
	GroupNewsletter MembershipGroup = "newsletter-subscribers"
)

var groupCodes = map[MembershipGroup]string{
	GroupStandard: "S",
	GroupPremium:  "P",
	GroupTrial:    "T",
}

// shortTailGroups reduce the allocation digest modulo 10^10 instead of 10^11.
var shortTailGroups = map[MembershipGroup]bool{
	GroupPremium: true,
	GroupTrial:   true,
}

// ParseGroup validates a requested membership group. The newsletter group is
// rejected here: it cannot be signed up for directly.
func ParseGroup(s string) (MembershipGroup, error) {
	g := MembershipGroup(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := groupCodes[g]; !ok {
		return "", ErrUnknownGroup
	}
	return g, nil
}

// Code returns the single-letter group code embedded in member IDs.
func (g MembershipGroup) Code() string { return groupCodes[g] }

// TailLength returns the numeric tail length for IDs allocated in this group.
func (g MembershipGroup) TailLength() int {
	if shortTailGroups[g] {
		return 10
	}
	return 11
}

func (g MembershipGroup) String() string { return string(g) }

// SourceChannel identifies where a signup originated.
type SourceChannel string

const (
	SourceWeb     SourceChannel = "web"
	SourceMobile  SourceChannel = "mobile"
	SourceImport  SourceChannel = "import"
	SourcePartner SourceChannel = "partner"
)

var sourceCodes = map[SourceChannel]string{
	SourceWeb:     "W",
	SourceMobile:  "A",
	SourceImport:  "I",
	SourcePartner: "B",
}

// ParseSourceChannel validates a signup source channel.
func ParseSourceChannel(s string) (SourceChannel, error) {
	c := SourceChannel(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := sourceCodes[c]; !ok {
		return "", ErrUnknownSource
	}
	return c, nil
}

// Code returns the single-letter source code embedded in member IDs.
func (c SourceChannel) Code() string { return sourceCodes[c] }

func (c SourceChannel) String() string { return string(c) }

// BatchID correlates the records of one bulk signup run.
type BatchID string

func (b BatchID) IsNil() bool    { return b == "" }
func (b BatchID) String() string { return string(b) }
