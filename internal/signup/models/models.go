// Package models holds the value types shared by the signup pipeline stages.
// The request is immutable once accepted; stages accumulate into result values
// instead of mutating it.
package models

import (
	"time"

	"enrolld/pkg/domain"
)

// CredentialMaterial carries whatever secret material the caller supplied.
// Interactive signups set Password; migrated records may carry a pre-hashed
// value and its salt instead.
type CredentialMaterial struct {
	Password      string
	PreHashedHash string
	PreHashedSalt string
}

// SignupRequest is the accepted signup input. Treated as read-only by every
// stage after validation.
type SignupRequest struct {
	Email       string
	FirstName   string
	LastName    string
	DateOfBirth string // 2006-01-02
	Group       domain.MembershipGroup
	PhoneNumber string
	Country     string
	Newsletter  bool
	Credential  CredentialMaterial
	IsMigration bool
	BatchID     domain.BatchID
	Source      domain.SourceChannel
}

// Batch reports whether the request belongs to a migration batch run.
func (r SignupRequest) Batch() bool { return !r.BatchID.IsNil() }

// Provider attribute names used with UpdateAttributes.
const (
	AttrMemberID    = "member_id"
	AttrFirstName   = "first_name"
	AttrLastName    = "last_name"
	AttrDisplayName = "display_name"
	AttrDateOfBirth = "date_of_birth"
)

// ProviderAccount mirrors the identity provider's view of an account.
type ProviderAccount struct {
	Email       string
	MemberID    domain.MemberID
	FirstName   string
	LastName    string
	DisplayName string
	DateOfBirth string
	Country     string
	// PhoneNumber is optional. Empty means the attribute is absent on the
	// provider side, never an empty string attribute.
	PhoneNumber string
	Source      string
	Groups      []domain.MembershipGroup
}

// HasOnlyGroup reports whether the account's sole group membership is g.
func (a ProviderAccount) HasOnlyGroup(g domain.MembershipGroup) bool {
	return len(a.Groups) == 1 && a.Groups[0] == g
}

// Profile is the store-owned demographic row.
type Profile struct {
	Email       string
	MemberID    domain.MemberID
	FirstName   string
	LastName    string
	DateOfBirth string
	Country     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Path classifies a signup request against the current state of both systems.
// Call sites switch exhaustively on it; there is no string dispatch.
type Path int

const (
	PathUnknown Path = iota
	// PathNew: neither system knows the email.
	PathNew
	// PathUpgrade: provider account with a member ID whose only group is the
	// upgrade-source group.
	PathUpgrade
	// PathBlockedDuplicate: provider account outside the upgrade-eligible
	// shape.
	PathBlockedDuplicate
	// PathConflict: a profile row already exists for the email.
	PathConflict
)

func (p Path) String() string {
	switch p {
	case PathNew:
		return "new"
	case PathUpgrade:
		return "upgrade"
	case PathBlockedDuplicate:
		return "blocked_duplicate"
	case PathConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Resolution is the existence resolver's output: the classified path plus
// whatever each system returned.
type Resolution struct {
	Path    Path
	Account *ProviderAccount
	Profile *Profile
}

// SubWriteFailure records one contained post-provider sub-write failure. The
// same information goes to the failure ledger; carrying it on the result lets
// callers and tests assert on partial outcomes directly.
type SubWriteFailure struct {
	Subsystem string
	Operation string
	Reason    string
}

// Subsystems appearing in sub-write failures and ledger records.
const (
	SubsystemProvider = "identity-provider"
	SubsystemProfile  = "profile-store"
)

// Sub-write operation names.
const (
	OpSetCredential       = "set_credential"
	OpAddToGroup          = "add_to_group"
	OpPushMemberID        = "push_member_id"
	OpInsertProfile       = "insert_profile"
	OpInsertCredential    = "insert_credential"
	OpInsertMembership    = "insert_membership"
	OpInsertNewsletter    = "insert_newsletter"
	OpInsertContactDetail = "insert_contact_detail"
)

// ProvisionResult is the accumulated outcome of a signup.
type ProvisionResult struct {
	MemberID domain.MemberID
	Path     Path
	// Partial lists contained sub-write failures. Empty means the signup
	// completed fully.
	Partial []SubWriteFailure
}

// Complete reports whether every sub-write succeeded.
func (r ProvisionResult) Complete() bool { return len(r.Partial) == 0 }
