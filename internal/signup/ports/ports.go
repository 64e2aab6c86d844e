// Package ports defines the collaborator interfaces consumed by the signup
// pipeline. Interfaces live here when more than one stage needs them.
package ports

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"enrolld/internal/audit"
	"enrolld/internal/signup/models"
	"enrolld/pkg/domain"
)

// ProviderClient is the identity provider admin API. The provider is the
// durable source of truth for "this identity exists"; its writes always
// precede store writes.
type ProviderClient interface {
	// CreateAccount creates the account and returns the provider's account ID.
	CreateAccount(ctx context.Context, account models.ProviderAccount) (string, error)

	// SetCredential sets the login credential for an account.
	SetCredential(ctx context.Context, email, credential string) error

	// AddToGroup adds the account to a membership group.
	AddToGroup(ctx context.Context, email string, group domain.MembershipGroup) error

	// AccountByEmail returns the account, or sentinel.ErrNotFound.
	AccountByEmail(ctx context.Context, email string) (*models.ProviderAccount, error)

	// UpdateAttributes patches account attributes (models.Attr* keys).
	UpdateAttributes(ctx context.Context, email string, attrs map[string]string) error
}

// ProfileStore is the relational profile store. Insert methods return
// sentinel.ErrIDTaken for member-ID unique violations and sentinel.ErrConflict
// for other duplicate keys, so callers can tell the retryable case apart.
type ProfileStore interface {
	// MemberIDExists reports whether a member ID is already assigned.
	MemberIDExists(ctx context.Context, id domain.MemberID) (bool, error)

	// ProfileByEmail returns the profile row (case-insensitive email), or
	// sentinel.ErrNotFound.
	ProfileByEmail(ctx context.Context, email string) (*models.Profile, error)

	// InsertProfile inserts the demographic row.
	InsertProfile(ctx context.Context, p models.Profile) error

	// UpsertCoreFields rewrites name, date of birth and country, inserting
	// the row when absent. Upgraded newsletter subscribers carry a member ID
	// but no profile row yet, so the upgrade path cannot assume one exists.
	UpsertCoreFields(ctx context.Context, p models.Profile) error

	InsertCredential(ctx context.Context, email, hash, salt string) error
	UpdateCredential(ctx context.Context, email, hash, salt string) error
	InsertMembership(ctx context.Context, email string, group domain.MembershipGroup, joinedAt time.Time) error
	InsertNewsletterPref(ctx context.Context, email string, optedIn bool) error
	InsertContactDetail(ctx context.Context, email, phone, country string) error
	UpsertContactDetail(ctx context.Context, email, phone, country string) error

	// Transaction runs fn with a store transaction carried in the context.
	// Store calls made with that context join the transaction.
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// FailureLedger records post-provider-write failures for out-of-band replay.
// Record never fails upward; a ledger outage must not mask the original error.
type FailureLedger interface {
	Record(ctx context.Context, subsystem, operation string, payload any)
}

// MigrationTracker keeps per-record bookkeeping for batch runs. Upserts are
// idempotent, last write wins. Observability only, never consulted for
// correctness decisions.
type MigrationTracker interface {
	MarkApplied(ctx context.Context, email string, batchID domain.BatchID) error
	MarkError(ctx context.Context, email string, batchID domain.BatchID) error
	MarkSkipped(ctx context.Context, email string, batchID domain.BatchID) error
}

// AuditPublisher emits audit events for signup outcomes.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}
